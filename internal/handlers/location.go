package handlers

import (
	"net/http"
	"time"

	"github.com/HammerMeetNail/campussafe/internal/services"
)

type LocationHandler struct {
	userService services.UserServiceInterface
}

func NewLocationHandler(userService services.UserServiceInterface) *LocationHandler {
	return &LocationHandler{userService: userService}
}

type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

type LocationResponse struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// Update stores a location ping as the caller's last known location.
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	updatedAt, err := h.userService.UpdateLocation(r.Context(), user.ID, *req.Latitude, *req.Longitude)
	if err != nil {
		writeServiceError(w, r, err, "Error updating location")
		return
	}

	writeJSON(w, http.StatusOK, LocationResponse{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		UpdatedAt: updatedAt,
	})
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, LocationResponse{
		Latitude:  user.Latitude,
		Longitude: user.Longitude,
		UpdatedAt: user.LocationUpdatedAt,
	})
}
