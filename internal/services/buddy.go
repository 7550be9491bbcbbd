package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/campussafe/internal/metrics"
	"github.com/HammerMeetNail/campussafe/internal/models"
	"github.com/HammerMeetNail/campussafe/internal/validation"
)

var (
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrCannotBuddySelf      = errors.New("cannot send a buddy request to yourself")
	ErrBuddyUserNotFound    = errors.New("no user found with that email")
	ErrAlreadyBuddies       = errors.New("already buddies with this user")
	ErrBuddyRequestExists   = errors.New("a pending buddy request already exists")
	ErrBuddyRequestNotFound = errors.New("buddy request not found")
	ErrBuddyNotFound        = errors.New("buddy not found")
	ErrInvalidNickname      = errors.New("nickname cannot be empty")
)

const (
	buddyRequestColumns    = `id, sender_id, receiver_id, nickname, phone_number, status, created_at, updated_at`
	buddyConnectionColumns = `id, user_id, buddy_id, nickname, phone_number, created_at, updated_at`
)

type BuddyService struct {
	db DBConn
}

func NewBuddyService(db DBConn) *BuddyService {
	return &BuddyService{db: db}
}

func scanBuddyRequest(row Row) (*models.BuddyRequest, error) {
	req := &models.BuddyRequest{}
	err := row.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Nickname, &req.PhoneNumber, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func scanBuddyConnection(row Row) (*models.BuddyConnection, error) {
	c := &models.BuddyConnection{}
	err := row.Scan(&c.ID, &c.UserID, &c.BuddyID, &c.Nickname, &c.PhoneNumber, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// CreateRequest records a pending request from sender to the user with the
// given email.
func (s *BuddyService) CreateRequest(ctx context.Context, sender *models.User, params models.CreateBuddyRequestParams) (*models.BuddyRequest, error) {
	email := NormalizeEmail(params.Email)
	if !validation.IsEmail(email) {
		return nil, ErrInvalidEmail
	}
	if email == NormalizeEmail(sender.Email) {
		return nil, ErrCannotBuddySelf
	}

	var receiverID uuid.UUID
	var receiverName string
	err := s.db.QueryRow(ctx, `SELECT id, name FROM users WHERE email = $1`, email).Scan(&receiverID, &receiverName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBuddyUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up receiver: %w", err)
	}
	if receiverID == sender.ID {
		return nil, ErrCannotBuddySelf
	}

	connected, err := s.connectionExists(ctx, sender.ID, receiverID)
	if err != nil {
		return nil, err
	}
	if connected {
		return nil, ErrAlreadyBuddies
	}

	pending, err := s.findPendingRequestBetween(ctx, sender.ID, receiverID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrBuddyRequestExists
	}

	nickname := strings.TrimSpace(params.Nickname)
	if nickname == "" {
		nickname = (&models.User{Name: receiverName, Email: email}).ContactName()
	}

	// The partial unique index on the unordered pair turns a concurrent
	// duplicate into zero returned rows.
	req, err := scanBuddyRequest(s.db.QueryRow(ctx,
		`INSERT INTO buddy_requests (sender_id, receiver_id, nickname, phone_number, status)
		 VALUES ($1, $2, $3, $4, 'pending')
		 ON CONFLICT DO NOTHING
		 RETURNING `+buddyRequestColumns,
		sender.ID, receiverID, nickname, optionalString(params.PhoneNumber),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBuddyRequestExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating buddy request: %w", err)
	}

	metrics.BuddyRequestTransitions.WithLabelValues("created").Inc()
	return req, nil
}

// AcceptRequest turns a pending request addressed to acceptor into a pair of
// connections and removes the request, all in one transaction. It returns the
// acceptor's side of the new relationship.
func (s *BuddyService) AcceptRequest(ctx context.Context, requestID uuid.UUID, acceptor *models.User) (*models.BuddyConnection, error) {
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

	req, err := scanBuddyRequest(tx.QueryRow(ctx,
		`SELECT `+buddyRequestColumns+`
		 FROM buddy_requests
		 WHERE id = $1 AND receiver_id = $2 AND status = 'pending'
		 FOR UPDATE`,
		requestID, acceptor.ID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBuddyRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading buddy request: %w", err)
	}

	conn, err := scanBuddyConnection(tx.QueryRow(ctx,
		`INSERT INTO buddy_connections (user_id, buddy_id, nickname, phone_number)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+buddyConnectionColumns,
		acceptor.ID, req.SenderID, req.Nickname, req.PhoneNumber,
	))
	if err != nil {
		return nil, fmt.Errorf("creating acceptor connection: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO buddy_connections (user_id, buddy_id, nickname, phone_number)
		 VALUES ($1, $2, $3, $4)`,
		req.SenderID, acceptor.ID, acceptor.ContactName(), req.PhoneNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("creating sender connection: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM buddy_requests WHERE id = $1`, req.ID); err != nil {
		return nil, fmt.Errorf("deleting buddy request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	committed = true

	metrics.BuddyRequestTransitions.WithLabelValues("accepted").Inc()
	return conn, nil
}

// RejectRequest deletes a pending request addressed to receiverID.
func (s *BuddyService) RejectRequest(ctx context.Context, requestID, receiverID uuid.UUID) error {
	return s.deletePending(ctx, `receiver_id`, "rejected", requestID, receiverID)
}

// CancelRequest deletes a pending request sent by senderID.
func (s *BuddyService) CancelRequest(ctx context.Context, requestID, senderID uuid.UUID) error {
	return s.deletePending(ctx, `sender_id`, "canceled", requestID, senderID)
}

func (s *BuddyService) deletePending(ctx context.Context, party, transition string, requestID, userID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`DELETE FROM buddy_requests WHERE id = $1 AND `+party+` = $2 AND status = 'pending'`,
		requestID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting buddy request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBuddyRequestNotFound
	}
	metrics.BuddyRequestTransitions.WithLabelValues(transition).Inc()
	return nil
}

// ListRequests returns the user's pending requests in both directions, each
// joined with the other party's profile.
func (s *BuddyService) ListRequests(ctx context.Context, userID uuid.UUID) (*models.BuddyRequestList, error) {
	sent, err := s.listRequests(ctx, userID, "sender_id", "receiver_id")
	if err != nil {
		return nil, err
	}
	received, err := s.listRequests(ctx, userID, "receiver_id", "sender_id")
	if err != nil {
		return nil, err
	}
	return &models.BuddyRequestList{Sent: sent, Received: received}, nil
}

func (s *BuddyService) listRequests(ctx context.Context, userID uuid.UUID, selfColumn, otherColumn string) ([]models.BuddyRequestWithUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id, r.sender_id, r.receiver_id, r.nickname, r.phone_number, r.status, r.created_at, r.updated_at,
		        u.id, u.name, u.email, u.image
		 FROM buddy_requests r
		 JOIN users u ON u.id = r.`+otherColumn+`
		 WHERE r.`+selfColumn+` = $1 AND r.status = 'pending'
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing buddy requests: %w", err)
	}
	defer rows.Close()

	requests := []models.BuddyRequestWithUser{}
	for rows.Next() {
		var r models.BuddyRequestWithUser
		if err := rows.Scan(
			&r.ID, &r.SenderID, &r.ReceiverID, &r.Nickname, &r.PhoneNumber, &r.Status, &r.CreatedAt, &r.UpdatedAt,
			&r.Counterpart.ID, &r.Counterpart.Name, &r.Counterpart.Email, &r.Counterpart.Image,
		); err != nil {
			return nil, fmt.Errorf("scanning buddy request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating buddy requests: %w", err)
	}
	return requests, nil
}

// ListBuddies returns the user's connections with each buddy's profile and
// last-known location.
func (s *BuddyService) ListBuddies(ctx context.Context, userID uuid.UUID) ([]models.BuddyWithProfile, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.user_id, c.buddy_id, c.nickname, c.phone_number, c.created_at, c.updated_at,
		        u.id, u.name, u.email, u.image, u.latitude, u.longitude, u.location_updated_at
		 FROM buddy_connections c
		 JOIN users u ON u.id = c.buddy_id
		 WHERE c.user_id = $1
		 ORDER BY LOWER(c.nickname)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing buddies: %w", err)
	}
	defer rows.Close()

	buddies := []models.BuddyWithProfile{}
	for rows.Next() {
		var b models.BuddyWithProfile
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.BuddyID, &b.Nickname, &b.PhoneNumber, &b.CreatedAt, &b.UpdatedAt,
			&b.Buddy.ID, &b.Buddy.Name, &b.Buddy.Email, &b.Buddy.Image,
			&b.Latitude, &b.Longitude, &b.LocationUpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning buddy: %w", err)
		}
		buddies = append(buddies, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating buddies: %w", err)
	}
	return buddies, nil
}

// ListConnectionsForUser returns the raw connections owned by userID.
func (s *BuddyService) ListConnectionsForUser(ctx context.Context, userID uuid.UUID) ([]models.BuddyConnection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+buddyConnectionColumns+` FROM buddy_connections WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	conns := []models.BuddyConnection{}
	for rows.Next() {
		c, err := scanBuddyConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		conns = append(conns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}
	return conns, nil
}

// UpdateBuddy changes the owner's label or phone number for a buddy. An empty
// phone number clears it.
func (s *BuddyService) UpdateBuddy(ctx context.Context, userID, connectionID uuid.UUID, params models.UpdateBuddyParams) (*models.BuddyConnection, error) {
	var nickname *string
	if params.Nickname != nil {
		trimmed := strings.TrimSpace(*params.Nickname)
		if trimmed == "" {
			return nil, ErrInvalidNickname
		}
		nickname = &trimmed
	}

	clearPhone := params.PhoneNumber != nil && strings.TrimSpace(*params.PhoneNumber) == ""
	phone := optionalString(params.PhoneNumber)

	conn, err := scanBuddyConnection(s.db.QueryRow(ctx,
		`UPDATE buddy_connections
		 SET nickname = COALESCE($3, nickname),
		     phone_number = CASE WHEN $5 THEN NULL ELSE COALESCE($4, phone_number) END,
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+buddyConnectionColumns,
		connectionID, userID, nickname, phone, clearPhone,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBuddyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating buddy: %w", err)
	}
	return conn, nil
}

// RemoveBuddy deletes both directions of a relationship.
func (s *BuddyService) RemoveBuddy(ctx context.Context, userID, connectionID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var buddyID uuid.UUID
	err = tx.QueryRow(ctx,
		`DELETE FROM buddy_connections WHERE id = $1 AND user_id = $2 RETURNING buddy_id`,
		connectionID, userID,
	).Scan(&buddyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBuddyNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM buddy_connections WHERE user_id = $1 AND buddy_id = $2`,
		buddyID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting reverse connection: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *BuddyService) connectionExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM buddy_connections
			WHERE (user_id = $1 AND buddy_id = $2)
			   OR (user_id = $2 AND buddy_id = $1)
		)`,
		a, b,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking buddy connection: %w", err)
	}
	return exists, nil
}

// findPendingRequestBetween returns the pending request between a and b in
// either direction, or nil.
func (s *BuddyService) findPendingRequestBetween(ctx context.Context, a, b uuid.UUID) (*models.BuddyRequest, error) {
	req, err := scanBuddyRequest(s.db.QueryRow(ctx,
		`SELECT `+buddyRequestColumns+`
		 FROM buddy_requests
		 WHERE status = 'pending'
		   AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		 LIMIT 1`,
		a, b,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking pending buddy request: %w", err)
	}
	return req, nil
}
