package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/HammerMeetNail/campussafe/internal/logging"
	"github.com/HammerMeetNail/campussafe/internal/services"
	"github.com/HammerMeetNail/campussafe/internal/validation"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

// serviceErrorResponses maps domain errors onto HTTP responses. Anything not
// listed is an internal error.
var serviceErrorResponses = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrInvalidEmail, http.StatusBadRequest, "Invalid email address"},
	{services.ErrInvalidCoordinates, http.StatusBadRequest, "Invalid coordinates"},
	{services.ErrInvalidNickname, http.StatusBadRequest, "Nickname must be between 1 and 100 characters"},
	{services.ErrCannotBuddySelf, http.StatusBadRequest, "You cannot send a buddy request to yourself"},
	{services.ErrAlreadyBuddies, http.StatusBadRequest, "You are already buddies with this user"},
	{services.ErrBuddyRequestExists, http.StatusBadRequest, "A buddy request already exists between you and this user"},
	{services.ErrBuddyUserNotFound, http.StatusNotFound, "No user found with that email"},
	{services.ErrBuddyRequestNotFound, http.StatusNotFound, "Buddy request not found"},
	{services.ErrBuddyNotFound, http.StatusNotFound, "Buddy not found"},
	{services.ErrAlertNotFound, http.StatusNotFound, "Alert not found"},
	{services.ErrAlertForbidden, http.StatusForbidden, "You can only delete your own alerts"},
}

// writeServiceError writes the mapped response for err. Unmapped errors are
// logged with detail and returned as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	for _, m := range serviceErrorResponses {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.message)
			return
		}
	}

	fields := map[string]interface{}{
		"error": err,
		"path":  r.URL.Path,
	}
	if user := GetUserFromContext(r.Context()); user != nil {
		fields["user_id"] = user.ID.String()
	}
	logging.Error(action, fields)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads a JSON body into dst and runs struct validation on it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return validation.ValidateStruct(dst)
}

// writeDecodeError answers a failed decodeJSON call.
func writeDecodeError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid input", Details: verr.Fields})
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
}
