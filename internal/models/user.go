package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Image             *string    `json:"image,omitempty"`
	PasswordHash      *string    `json:"-"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	LocationUpdatedAt *time.Time `json:"locationUpdatedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ContactName is how the user is addressed in messages to buddies: the
// display name, else the email local part, else "Buddy".
func (u *User) ContactName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return "Buddy"
}

// HasLocation reports whether a last-known location has been stored.
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// PublicProfile is the counterpart view joined onto requests and connections.
type PublicProfile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Image *string   `json:"image,omitempty"`
}

type CreateUserParams struct {
	Email        string
	Name         string
	Image        *string
	PasswordHash *string
}

// Account links an external identity to a local user.
type Account struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ExternalIdentity is what an identity provider reports about a signed-in user.
type ExternalIdentity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Image             string
}

type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
