package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/HammerMeetNail/campussafe/internal/models"
)

const ProviderGoogle = "google"

var googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	ErrIdentityNotConfigured = errors.New("identity provider not configured")
	ErrIdentityExchange      = errors.New("identity provider exchange failed")
	ErrEmailNotVerified      = errors.New("identity provider email not verified")
)

// IdentityProvider is an external sign-in provider using the authorization
// code flow.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrIdentityExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrIdentityExchange, resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decoding userinfo: %v", ErrIdentityExchange, err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: userinfo missing subject or email", ErrIdentityExchange)
	}
	if !info.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return &models.ExternalIdentity{
		Provider:          ProviderGoogle,
		ProviderAccountID: info.Sub,
		Email:             info.Email,
		Name:              info.Name,
		Image:             info.Picture,
	}, nil
}

// IdentityService maps external identities onto local users and accounts.
type IdentityService struct {
	db DBConn
}

func NewIdentityService(db DBConn) *IdentityService {
	return &IdentityService{db: db}
}

// SignIn returns the local user for an external identity, creating the user
// and the account link on first sign-in. An existing user with the same email
// is linked rather than duplicated.
func (s *IdentityService) SignIn(ctx context.Context, identity *models.ExternalIdentity) (*models.User, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	user, err := scanUser(tx.QueryRow(ctx,
		`SELECT u.id, u.name, u.email, u.image, u.password_hash, u.latitude, u.longitude,
		        u.location_updated_at, u.created_at, u.updated_at
		 FROM accounts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.provider = $1 AND a.provider_account_id = $2`,
		identity.Provider, identity.ProviderAccountID,
	))
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("committing transaction: %w", err)
		}
		committed = true
		return user, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	var image *string
	if identity.Image != "" {
		image = &identity.Image
	}

	user, err = scanUser(tx.QueryRow(ctx,
		`INSERT INTO users (name, email, image)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET
		   name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END,
		   image = COALESCE(users.image, EXCLUDED.image),
		   updated_at = NOW()
		 RETURNING `+userColumns,
		strings.TrimSpace(identity.Name), NormalizeEmail(identity.Email), image,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (user_id, provider, provider_account_id) VALUES ($1, $2, $3)`,
		user.ID, identity.Provider, identity.ProviderAccountID,
	)
	if err != nil {
		return nil, fmt.Errorf("linking account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	committed = true

	return user, nil
}

// ListAccounts returns the provider links for a user.
func (s *IdentityService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, provider, provider_account_id, created_at
		 FROM accounts WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}
