package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/campussafe/internal/logging"
	"github.com/HammerMeetNail/campussafe/internal/metrics"
	"github.com/HammerMeetNail/campussafe/internal/models"
)

const (
	UnknownLocationAddress = "Location unknown - user needs immediate assistance"
	RecentAlertsLimit      = 20

	alertColumns = `id, user_id, latitude, longitude, address, description, has_image, created_at`
)

var (
	ErrAlertNotFound       = errors.New("alert not found")
	ErrAlertForbidden      = errors.New("not allowed to delete this alert")
	ErrNoReachableContacts = errors.New("no buddies with a phone number to notify")
)

type contactLister interface {
	ListConnectionsForUser(ctx context.Context, userID uuid.UUID) ([]models.BuddyConnection, error)
}

type addressResolver interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) GeocodeResult
}

type bulkSender interface {
	SendBulk(ctx context.Context, messages []SMSMessage) DispatchResult
}

// LocationInfo describes where an instant alert's coordinates came from.
type LocationInfo struct {
	Source   models.LocationSource `json:"source"`
	Degraded DegradedReason        `json:"degraded,omitempty"`
}

type InstantAlertResult struct {
	Alert      *models.Alert  `json:"alert"`
	SMSResults DispatchResult `json:"smsResults"`
	Message    string         `json:"message"`
	Warning    string         `json:"warning,omitempty"`
	Location   LocationInfo   `json:"location"`
}

type AlertService struct {
	db         DBConn
	contacts   contactLister
	geocoder   addressResolver
	dispatcher bulkSender
	now        func() time.Time
	location   *time.Location
}

func NewAlertService(db DBConn, contacts contactLister, geocoder addressResolver, dispatcher bulkSender) *AlertService {
	return &AlertService{
		db:         db,
		contacts:   contacts,
		geocoder:   geocoder,
		dispatcher: dispatcher,
		now:        time.Now,
		location:   time.Local,
	}
}

func scanAlert(row Row) (*models.Alert, error) {
	a := &models.Alert{}
	err := row.Scan(&a.ID, &a.UserID, &a.Latitude, &a.Longitude, &a.Address, &a.Description, &a.HasImage, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAlert stores a manually reported incident as given.
func (s *AlertService) CreateAlert(ctx context.Context, userID uuid.UUID, params models.CreateAlertParams) (*models.Alert, error) {
	if !ValidCoordinates(params.Latitude, params.Longitude) {
		return nil, ErrInvalidCoordinates
	}
	address := strings.TrimSpace(params.Address)
	if address == "" {
		address = FormatCoordinates(params.Latitude, params.Longitude)
	}

	alert, err := s.insertAlert(ctx, userID, params.Latitude, params.Longitude, address, optionalString(params.Description), params.HasImage)
	if err != nil {
		return nil, err
	}
	metrics.AlertsCreated.WithLabelValues("manual", string(models.LocationSourceRequest)).Inc()
	return alert, nil
}

// TriggerInstantAlert persists an emergency alert and texts every buddy with
// a phone number. The alert is stored before any contact lookup, so it is
// returned alongside ErrNoReachableContacts when nobody can be notified.
func (s *AlertService) TriggerInstantAlert(ctx context.Context, reporter *models.User, params models.InstantAlertParams) (*InstantAlertResult, error) {
	lat, lng, source := resolveAlertLocation(reporter, params)

	info := LocationInfo{Source: source}
	address := UnknownLocationAddress
	if source != models.LocationSourceUnknown {
		geo := s.geocoder.ReverseGeocode(ctx, lat, lng)
		address = geo.Address
		info.Degraded = geo.Degraded
	}

	alert, err := s.insertAlert(ctx, reporter.ID, lat, lng, address, optionalString(params.Description), false)
	if err != nil {
		return nil, err
	}
	metrics.AlertsCreated.WithLabelValues("instant", string(source)).Inc()

	result := &InstantAlertResult{
		Alert:      alert,
		SMSResults: DispatchResult{Successful: []string{}, Failed: []string{}},
		Location:   info,
	}

	conns, err := s.contacts.ListConnectionsForUser(ctx, reporter.ID)
	if err != nil {
		return nil, fmt.Errorf("listing alert contacts: %w", err)
	}

	messages := make([]SMSMessage, 0, len(conns))
	for _, c := range conns {
		if !c.HasPhone() {
			continue
		}
		messages = append(messages, SMSMessage{
			To:   *c.PhoneNumber,
			Body: s.formatAlertMessage(c.Nickname, reporter.ContactName(), alert, source),
		})
	}
	if len(messages) == 0 {
		logging.Warn("Instant alert has no reachable contacts", map[string]interface{}{
			"alert_id": alert.ID.String(),
			"user_id":  reporter.ID.String(),
		})
		result.Message = "Alert saved, but you have no buddies with a phone number to notify"
		return result, ErrNoReachableContacts
	}

	result.SMSResults = s.dispatcher.SendBulk(ctx, messages)
	result.Message = fmt.Sprintf("Emergency alert sent to %d of %d contacts", len(result.SMSResults.Successful), len(messages))
	if len(result.SMSResults.Successful) == 0 && len(result.SMSResults.Failed) > 0 {
		result.Warning = "Alert saved, but no text messages could be delivered"
	}

	logging.Info("Instant alert dispatched", map[string]interface{}{
		"alert_id":        alert.ID.String(),
		"location_source": string(source),
		"sms_successful":  len(result.SMSResults.Successful),
		"sms_failed":      len(result.SMSResults.Failed),
	})

	return result, nil
}

// resolveAlertLocation prefers request coordinates, then the reporter's stored
// location, then the (0, 0) sentinel.
func resolveAlertLocation(reporter *models.User, params models.InstantAlertParams) (float64, float64, models.LocationSource) {
	if params.Latitude != nil && params.Longitude != nil && ValidCoordinates(*params.Latitude, *params.Longitude) {
		return *params.Latitude, *params.Longitude, models.LocationSourceRequest
	}
	if reporter != nil && reporter.HasLocation() && ValidCoordinates(*reporter.Latitude, *reporter.Longitude) {
		return *reporter.Latitude, *reporter.Longitude, models.LocationSourceStored
	}
	return 0, 0, models.LocationSourceUnknown
}

func (s *AlertService) formatAlertMessage(contactName, reporterName string, alert *models.Alert, source models.LocationSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, EMERGENCY ALERT from %s: they need help now.\n", contactName, reporterName)
	fmt.Fprintf(&b, "Location: %s\n", alert.Address)
	fmt.Fprintf(&b, "Time: %s", alert.CreatedAt.In(s.location).Format("Jan 2, 2006 at 3:04 PM MST"))
	if source != models.LocationSourceUnknown {
		fmt.Fprintf(&b, "\nMap: https://www.google.com/maps?q=%.6f,%.6f", alert.Latitude, alert.Longitude)
	}
	if alert.Description != nil {
		fmt.Fprintf(&b, "\nNote: %s", *alert.Description)
	}
	return b.String()
}

func (s *AlertService) insertAlert(ctx context.Context, userID uuid.UUID, lat, lng float64, address string, description *string, hasImage bool) (*models.Alert, error) {
	alert, err := scanAlert(s.db.QueryRow(ctx,
		`INSERT INTO alerts (user_id, latitude, longitude, address, description, has_image, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+alertColumns,
		userID, lat, lng, address, description, hasImage, s.now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}
	return alert, nil
}

// ListAlerts returns alerts newest first with the reporter's name. A limit of
// zero or less returns every alert.
func (s *AlertService) ListAlerts(ctx context.Context, limit int) ([]models.AlertWithReporter, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}

	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.user_id, a.latitude, a.longitude, a.address, a.description, a.has_image, a.created_at,
		        COALESCE(NULLIF(u.name, ''), split_part(u.email, '@', 1))
		 FROM alerts a
		 JOIN users u ON u.id = a.user_id
		 ORDER BY a.created_at DESC
		 LIMIT $1`,
		limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := []models.AlertWithReporter{}
	for rows.Next() {
		var a models.AlertWithReporter
		if err := rows.Scan(&a.ID, &a.UserID, &a.Latitude, &a.Longitude, &a.Address, &a.Description, &a.HasImage, &a.CreatedAt, &a.ReporterName); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

// DeleteAlert removes an alert owned by userID.
func (s *AlertService) DeleteAlert(ctx context.Context, userID, alertID uuid.UUID) error {
	var ownerID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT user_id FROM alerts WHERE id = $1`, alertID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlertNotFound
	}
	if err != nil {
		return fmt.Errorf("loading alert: %w", err)
	}
	if ownerID != userID {
		return ErrAlertForbidden
	}

	result, err := s.db.Exec(ctx, `DELETE FROM alerts WHERE id = $1 AND user_id = $2`, alertID, userID)
	if err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}
