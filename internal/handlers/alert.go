package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campussafe/internal/models"
	"github.com/HammerMeetNail/campussafe/internal/services"
)

type AlertHandler struct {
	alertService services.AlertServiceInterface
}

func NewAlertHandler(alertService services.AlertServiceInterface) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

type CreateAlertRequest struct {
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	Address     string   `json:"address" validate:"max=500"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	HasImage    bool     `json:"hasImage"`
}

// InstantAlertRequest has no coordinate rules: bad or missing coordinates fall
// back to the stored location instead of rejecting the alert.
type InstantAlertRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
}

type AlertResponse struct {
	Alert   *models.Alert `json:"alert,omitempty"`
	Message string        `json:"message,omitempty"`
}

type AlertListResponse struct {
	Alerts []models.AlertWithReporter `json:"alerts"`
}

// NoReachableContactsResponse is returned when the alert was saved but nobody
// could be texted.
type NoReachableContactsResponse struct {
	Error string        `json:"error"`
	Alert *models.Alert `json:"alert"`
}

func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	alert, err := h.alertService.CreateAlert(r.Context(), user.ID, models.CreateAlertParams{
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Address:     req.Address,
		Description: req.Description,
		HasImage:    req.HasImage,
	})
	if err != nil {
		writeServiceError(w, r, err, "Error creating alert")
		return
	}

	writeJSON(w, http.StatusCreated, AlertResponse{Alert: alert})
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, 0)
}

func (h *AlertHandler) Recent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, services.RecentAlertsLimit)
}

func (h *AlertHandler) list(w http.ResponseWriter, r *http.Request, limit int) {
	if GetUserFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	alerts, err := h.alertService.ListAlerts(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err, "Error listing alerts")
		return
	}
	if alerts == nil {
		alerts = []models.AlertWithReporter{}
	}

	writeJSON(w, http.StatusOK, AlertListResponse{Alerts: alerts})
}

// Delete removes one of the caller's alerts, identified by the id query parameter.
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	alertID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	if err := h.alertService.DeleteAlert(r.Context(), user.ID, alertID); err != nil {
		writeServiceError(w, r, err, "Error deleting alert")
		return
	}

	writeJSON(w, http.StatusOK, AlertResponse{Message: "Alert deleted"})
}

// Instant persists an emergency alert and texts every buddy with a phone number.
func (h *AlertHandler) Instant(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req InstantAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.alertService.TriggerInstantAlert(r.Context(), user, models.InstantAlertParams{
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Description: req.Description,
	})
	if errors.Is(err, services.ErrNoReachableContacts) {
		resp := NoReachableContactsResponse{Error: "No buddies with a phone number to notify"}
		if result != nil {
			resp.Alert = result.Alert
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "Error triggering instant alert")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
