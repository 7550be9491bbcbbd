package models

import (
	"time"

	"github.com/google/uuid"
)

type BuddyRequestStatus string

// Pending is the only persisted state. Accept, reject and cancel delete the row.
const BuddyRequestStatusPending BuddyRequestStatus = "pending"

type BuddyRequest struct {
	ID          uuid.UUID          `json:"id"`
	SenderID    uuid.UUID          `json:"senderId"`
	ReceiverID  uuid.UUID          `json:"receiverId"`
	Nickname    string             `json:"nickname"`
	PhoneNumber *string            `json:"phoneNumber"`
	Status      BuddyRequestStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// BuddyRequestWithUser is a request joined with the other party's profile.
type BuddyRequestWithUser struct {
	BuddyRequest
	Counterpart PublicProfile `json:"user"`
}

type BuddyRequestList struct {
	Sent     []BuddyRequestWithUser `json:"sent"`
	Received []BuddyRequestWithUser `json:"received"`
}

type CreateBuddyRequestParams struct {
	Email       string
	Nickname    string
	PhoneNumber *string
}

// BuddyConnection is one direction of a buddy relationship, owned by UserID.
type BuddyConnection struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	BuddyID     uuid.UUID `json:"buddyId"`
	Nickname    string    `json:"nickname"`
	PhoneNumber *string   `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasPhone reports whether the connection can be reached by SMS.
func (c BuddyConnection) HasPhone() bool {
	return c.PhoneNumber != nil && *c.PhoneNumber != ""
}

// BuddyWithProfile is a connection joined with the buddy's profile and
// last-known location for the map.
type BuddyWithProfile struct {
	BuddyConnection
	Buddy             PublicProfile `json:"buddy"`
	Latitude          *float64      `json:"latitude,omitempty"`
	Longitude         *float64      `json:"longitude,omitempty"`
	LocationUpdatedAt *time.Time    `json:"locationUpdatedAt,omitempty"`
}

type UpdateBuddyParams struct {
	Nickname *string
	// PhoneNumber set to a pointer to "" clears the stored number.
	PhoneNumber *string
}
