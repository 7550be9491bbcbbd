package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campussafe/internal/models"
	"github.com/HammerMeetNail/campussafe/internal/services"
)

type BuddyHandler struct {
	buddyService services.BuddyServiceInterface
}

func NewBuddyHandler(buddyService services.BuddyServiceInterface) *BuddyHandler {
	return &BuddyHandler{buddyService: buddyService}
}

type CreateBuddyRequestRequest struct {
	Email       string  `json:"email" validate:"required,email,max=255"`
	Nickname    string  `json:"nickname" validate:"max=100"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,phone"`
}

type RespondBuddyRequestRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

type UpdateBuddyRequest struct {
	Nickname    *string `json:"nickname" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,phone"`
}

type BuddyListResponse struct {
	Buddies []models.BuddyWithProfile `json:"buddies"`
}

type BuddyRequestResponse struct {
	Request    *models.BuddyRequest    `json:"request,omitempty"`
	Connection *models.BuddyConnection `json:"connection,omitempty"`
	Message    string                  `json:"message,omitempty"`
}

func (h *BuddyHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	buddies, err := h.buddyService.ListBuddies(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "Error listing buddies")
		return
	}
	if buddies == nil {
		buddies = []models.BuddyWithProfile{}
	}

	writeJSON(w, http.StatusOK, BuddyListResponse{Buddies: buddies})
}

func (h *BuddyHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	connectionID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid buddy ID")
		return
	}

	var req UpdateBuddyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	conn, err := h.buddyService.UpdateBuddy(r.Context(), user.ID, connectionID, models.UpdateBuddyParams{
		Nickname:    req.Nickname,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeServiceError(w, r, err, "Error updating buddy")
		return
	}

	writeJSON(w, http.StatusOK, BuddyRequestResponse{Connection: conn, Message: "Buddy updated"})
}

// Remove deletes the relationship in both directions.
func (h *BuddyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	connectionID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid buddy ID")
		return
	}

	if err := h.buddyService.RemoveBuddy(r.Context(), user.ID, connectionID); err != nil {
		writeServiceError(w, r, err, "Error removing buddy")
		return
	}

	writeJSON(w, http.StatusOK, BuddyRequestResponse{Message: "Buddy removed"})
}

func (h *BuddyHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateBuddyRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	created, err := h.buddyService.CreateRequest(r.Context(), user, models.CreateBuddyRequestParams{
		Email:       req.Email,
		Nickname:    req.Nickname,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		writeServiceError(w, r, err, "Error creating buddy request")
		return
	}

	writeJSON(w, http.StatusCreated, BuddyRequestResponse{Request: created, Message: "Buddy request sent"})
}

func (h *BuddyHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	list, err := h.buddyService.ListRequests(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "Error listing buddy requests")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Respond accepts or rejects a request addressed to the caller.
func (h *BuddyHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var req RespondBuddyRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if req.Action == "reject" {
		if err := h.buddyService.RejectRequest(r.Context(), requestID, user.ID); err != nil {
			writeServiceError(w, r, err, "Error rejecting buddy request")
			return
		}
		writeJSON(w, http.StatusOK, BuddyRequestResponse{Message: "Buddy request rejected"})
		return
	}

	conn, err := h.buddyService.AcceptRequest(r.Context(), requestID, user)
	if err != nil {
		writeServiceError(w, r, err, "Error accepting buddy request")
		return
	}

	writeJSON(w, http.StatusOK, BuddyRequestResponse{Connection: conn, Message: "Buddy request accepted"})
}

// Cancel withdraws a request the caller sent.
func (h *BuddyHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	if err := h.buddyService.CancelRequest(r.Context(), requestID, user.ID); err != nil {
		writeServiceError(w, r, err, "Error canceling buddy request")
		return
	}

	writeJSON(w, http.StatusOK, BuddyRequestResponse{Message: "Buddy request canceled"})
}

// Delete removes a request addressed to the caller without connecting.
func (h *BuddyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	if err := h.buddyService.RejectRequest(r.Context(), requestID, user.ID); err != nil {
		writeServiceError(w, r, err, "Error deleting buddy request")
		return
	}

	writeJSON(w, http.StatusOK, BuddyRequestResponse{Message: "Buddy request deleted"})
}

var errMissingID = errors.New("missing id")

func parsePathID(r *http.Request) (uuid.UUID, error) {
	id := r.PathValue("id")
	if id == "" {
		return uuid.Nil, errMissingID
	}
	return uuid.Parse(id)
}
