package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campussafe/internal/models"
	"github.com/HammerMeetNail/campussafe/internal/services"
)

type mockUserService struct {
	CreateFunc         func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	UpdateLocationFunc func(ctx context.Context, userID uuid.UUID, lat, lng float64) (*time.Time, error)
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserService) UpdateLocation(ctx context.Context, userID uuid.UUID, lat, lng float64) (*time.Time, error) {
	if m.UpdateLocationFunc != nil {
		return m.UpdateLocationFunc(ctx, userID, lat, lng)
	}
	now := time.Now()
	return &now, nil
}

type mockAuthService struct {
	HashPasswordFunc    func(password string) (string, error)
	AuthenticateFunc    func(ctx context.Context, email, password string) (*models.User, error)
	CreateSessionFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.User, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, email, password)
	}
	return nil, services.ErrInvalidCredentials
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, userID)
	}
	return "session-token", nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, services.ErrSessionNotFound
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

type mockIdentityService struct {
	SignInFunc       func(ctx context.Context, identity *models.ExternalIdentity) (*models.User, error)
	ListAccountsFunc func(ctx context.Context, userID uuid.UUID) ([]models.Account, error)
}

func (m *mockIdentityService) SignIn(ctx context.Context, identity *models.ExternalIdentity) (*models.User, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, identity)
	}
	return nil, nil
}

func (m *mockIdentityService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, userID)
	}
	return nil, nil
}

type mockIdentityProvider struct {
	ExchangeFunc func(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

func (m *mockIdentityProvider) Name() string { return services.ProviderGoogle }

func (m *mockIdentityProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return nil, services.ErrIdentityExchange
}

type mockBuddyService struct {
	CreateRequestFunc func(ctx context.Context, sender *models.User, params models.CreateBuddyRequestParams) (*models.BuddyRequest, error)
	AcceptRequestFunc func(ctx context.Context, requestID uuid.UUID, acceptor *models.User) (*models.BuddyConnection, error)
	RejectRequestFunc func(ctx context.Context, requestID, receiverID uuid.UUID) error
	CancelRequestFunc func(ctx context.Context, requestID, senderID uuid.UUID) error
	ListRequestsFunc  func(ctx context.Context, userID uuid.UUID) (*models.BuddyRequestList, error)
	ListBuddiesFunc   func(ctx context.Context, userID uuid.UUID) ([]models.BuddyWithProfile, error)
	UpdateBuddyFunc   func(ctx context.Context, userID, connectionID uuid.UUID, params models.UpdateBuddyParams) (*models.BuddyConnection, error)
	RemoveBuddyFunc   func(ctx context.Context, userID, connectionID uuid.UUID) error
}

func (m *mockBuddyService) CreateRequest(ctx context.Context, sender *models.User, params models.CreateBuddyRequestParams) (*models.BuddyRequest, error) {
	if m.CreateRequestFunc != nil {
		return m.CreateRequestFunc(ctx, sender, params)
	}
	return &models.BuddyRequest{ID: uuid.New(), SenderID: sender.ID, Status: models.BuddyRequestStatusPending}, nil
}

func (m *mockBuddyService) AcceptRequest(ctx context.Context, requestID uuid.UUID, acceptor *models.User) (*models.BuddyConnection, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, requestID, acceptor)
	}
	return &models.BuddyConnection{ID: uuid.New(), UserID: acceptor.ID}, nil
}

func (m *mockBuddyService) RejectRequest(ctx context.Context, requestID, receiverID uuid.UUID) error {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, requestID, receiverID)
	}
	return nil
}

func (m *mockBuddyService) CancelRequest(ctx context.Context, requestID, senderID uuid.UUID) error {
	if m.CancelRequestFunc != nil {
		return m.CancelRequestFunc(ctx, requestID, senderID)
	}
	return nil
}

func (m *mockBuddyService) ListRequests(ctx context.Context, userID uuid.UUID) (*models.BuddyRequestList, error) {
	if m.ListRequestsFunc != nil {
		return m.ListRequestsFunc(ctx, userID)
	}
	return &models.BuddyRequestList{Sent: []models.BuddyRequestWithUser{}, Received: []models.BuddyRequestWithUser{}}, nil
}

func (m *mockBuddyService) ListBuddies(ctx context.Context, userID uuid.UUID) ([]models.BuddyWithProfile, error) {
	if m.ListBuddiesFunc != nil {
		return m.ListBuddiesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockBuddyService) UpdateBuddy(ctx context.Context, userID, connectionID uuid.UUID, params models.UpdateBuddyParams) (*models.BuddyConnection, error) {
	if m.UpdateBuddyFunc != nil {
		return m.UpdateBuddyFunc(ctx, userID, connectionID, params)
	}
	return &models.BuddyConnection{ID: connectionID, UserID: userID}, nil
}

func (m *mockBuddyService) RemoveBuddy(ctx context.Context, userID, connectionID uuid.UUID) error {
	if m.RemoveBuddyFunc != nil {
		return m.RemoveBuddyFunc(ctx, userID, connectionID)
	}
	return nil
}

type mockAlertService struct {
	CreateAlertFunc         func(ctx context.Context, userID uuid.UUID, params models.CreateAlertParams) (*models.Alert, error)
	TriggerInstantAlertFunc func(ctx context.Context, reporter *models.User, params models.InstantAlertParams) (*services.InstantAlertResult, error)
	ListAlertsFunc          func(ctx context.Context, limit int) ([]models.AlertWithReporter, error)
	DeleteAlertFunc         func(ctx context.Context, userID, alertID uuid.UUID) error
}

func (m *mockAlertService) CreateAlert(ctx context.Context, userID uuid.UUID, params models.CreateAlertParams) (*models.Alert, error) {
	if m.CreateAlertFunc != nil {
		return m.CreateAlertFunc(ctx, userID, params)
	}
	return &models.Alert{ID: uuid.New(), UserID: userID}, nil
}

func (m *mockAlertService) TriggerInstantAlert(ctx context.Context, reporter *models.User, params models.InstantAlertParams) (*services.InstantAlertResult, error) {
	if m.TriggerInstantAlertFunc != nil {
		return m.TriggerInstantAlertFunc(ctx, reporter, params)
	}
	return nil, nil
}

func (m *mockAlertService) ListAlerts(ctx context.Context, limit int) ([]models.AlertWithReporter, error) {
	if m.ListAlertsFunc != nil {
		return m.ListAlertsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockAlertService) DeleteAlert(ctx context.Context, userID, alertID uuid.UUID) error {
	if m.DeleteAlertFunc != nil {
		return m.DeleteAlertFunc(ctx, userID, alertID)
	}
	return nil
}

type mockAssistant struct {
	AskFunc func(ctx context.Context, userID uuid.UUID, message string) (string, error)
}

func (m *mockAssistant) Ask(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, userID, message)
	}
	return "", nil
}
