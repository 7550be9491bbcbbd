package models

import (
	"time"

	"github.com/google/uuid"
)

type Alert struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address"`
	Description *string   `json:"description"`
	HasImage    bool      `json:"hasImage"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AlertWithReporter is an alert joined with the reporter's display name.
type AlertWithReporter struct {
	Alert
	ReporterName string `json:"reporterName"`
}

type CreateAlertParams struct {
	Latitude    float64
	Longitude   float64
	Address     string
	Description *string
	HasImage    bool
}

type InstantAlertParams struct {
	Latitude    *float64
	Longitude   *float64
	Description *string
}

// LocationSource says which input an instant alert's coordinates came from.
type LocationSource string

const (
	LocationSourceRequest LocationSource = "request"
	LocationSourceStored  LocationSource = "stored"
	LocationSourceUnknown LocationSource = "unknown"
)
