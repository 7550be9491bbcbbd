package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campussafe/internal/models"
)

// UserServiceInterface defines the contract for user operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLocation(ctx context.Context, userID uuid.UUID, lat, lng float64) (*time.Time, error)
}

// AuthServiceInterface defines the contract for authentication operations.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	CreateSession(ctx context.Context, userID uuid.UUID) (token string, err error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// IdentityServiceInterface links external provider identities to users.
type IdentityServiceInterface interface {
	SignIn(ctx context.Context, identity *models.ExternalIdentity) (*models.User, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.Account, error)
}

// BuddyServiceInterface defines the contract for buddy requests and connections.
type BuddyServiceInterface interface {
	CreateRequest(ctx context.Context, sender *models.User, params models.CreateBuddyRequestParams) (*models.BuddyRequest, error)
	AcceptRequest(ctx context.Context, requestID uuid.UUID, acceptor *models.User) (*models.BuddyConnection, error)
	RejectRequest(ctx context.Context, requestID, receiverID uuid.UUID) error
	CancelRequest(ctx context.Context, requestID, senderID uuid.UUID) error
	ListRequests(ctx context.Context, userID uuid.UUID) (*models.BuddyRequestList, error)
	ListBuddies(ctx context.Context, userID uuid.UUID) ([]models.BuddyWithProfile, error)
	UpdateBuddy(ctx context.Context, userID, connectionID uuid.UUID, params models.UpdateBuddyParams) (*models.BuddyConnection, error)
	RemoveBuddy(ctx context.Context, userID, connectionID uuid.UUID) error
}

// AlertServiceInterface defines the contract for incident and emergency alerts.
type AlertServiceInterface interface {
	CreateAlert(ctx context.Context, userID uuid.UUID, params models.CreateAlertParams) (*models.Alert, error)
	TriggerInstantAlert(ctx context.Context, reporter *models.User, params models.InstantAlertParams) (*InstantAlertResult, error)
	ListAlerts(ctx context.Context, limit int) ([]models.AlertWithReporter, error)
	DeleteAlert(ctx context.Context, userID, alertID uuid.UUID) error
}

// AssistantInterface answers safety questions.
type AssistantInterface interface {
	Ask(ctx context.Context, userID uuid.UUID, message string) (string, error)
}

var (
	_ UserServiceInterface     = (*UserService)(nil)
	_ AuthServiceInterface     = (*AuthService)(nil)
	_ IdentityServiceInterface = (*IdentityService)(nil)
	_ BuddyServiceInterface    = (*BuddyService)(nil)
	_ AlertServiceInterface    = (*AlertService)(nil)
)
