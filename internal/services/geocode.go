package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"googlemaps.github.io/maps"

	"github.com/HammerMeetNail/campussafe/internal/logging"
	"github.com/HammerMeetNail/campussafe/internal/metrics"
)

// DegradedReason explains why a geocode result is a fallback. Empty means
// the address came from the provider.
type DegradedReason string

const (
	DegradedMissingAPIKey DegradedReason = "missing_api_key"
	DegradedUpstreamError DegradedReason = "upstream_error"
	DegradedNoResults     DegradedReason = "no_results"
	DegradedCircuitOpen   DegradedReason = "circuit_open"
)

var errNoGeocodeResults = errors.New("no geocoding results")

type GeocodeResult struct {
	Address  string
	Degraded DegradedReason
}

// reverseGeocoder is satisfied by *maps.Client.
type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Geocoder resolves coordinates to addresses. It never fails: every error
// becomes a coordinate-string fallback with a reason.
type Geocoder struct {
	client  reverseGeocoder
	breaker *gobreaker.CircuitBreaker[string]
	timeout time.Duration
}

// NewGeocoder builds a Google Maps backed geocoder. An empty key yields a
// geocoder that always falls back.
func NewGeocoder(apiKey string) (*Geocoder, error) {
	if apiKey == "" {
		return newGeocoder(nil), nil
	}
	client, err := maps.NewClient(
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating maps client: %w", err)
	}
	return newGeocoder(client), nil
}

func newGeocoder(client reverseGeocoder) *Geocoder {
	g := &Geocoder{client: client, timeout: 10 * time.Second}
	g.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "reverse-geocode",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// An empty result set is a valid answer, not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoGeocodeResults)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return g
}

// FormatCoordinates is the fallback address text.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

func (g *Geocoder) ReverseGeocode(ctx context.Context, lat, lng float64) GeocodeResult {
	result := g.reverseGeocode(ctx, lat, lng)
	outcome := string(result.Degraded)
	if outcome == "" {
		outcome = "ok"
	}
	metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	return result
}

func (g *Geocoder) reverseGeocode(ctx context.Context, lat, lng float64) GeocodeResult {
	fallback := FormatCoordinates(lat, lng)
	if g == nil || g.client == nil {
		return GeocodeResult{Address: fallback, Degraded: DegradedMissingAPIKey}
	}

	address, err := g.breaker.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
			LatLng: &maps.LatLng{Lat: lat, Lng: lng},
		})
		if err != nil {
			// The SDK reports ZERO_RESULTS as an error status.
			if strings.Contains(err.Error(), "ZERO_RESULTS") {
				return "", errNoGeocodeResults
			}
			return "", err
		}
		for _, r := range results {
			if r.FormattedAddress != "" {
				return r.FormattedAddress, nil
			}
		}
		return "", errNoGeocodeResults
	})

	switch {
	case err == nil:
		return GeocodeResult{Address: address}
	case errors.Is(err, errNoGeocodeResults):
		return GeocodeResult{Address: fallback, Degraded: DegradedNoResults}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return GeocodeResult{Address: fallback, Degraded: DegradedCircuitOpen}
	default:
		logging.Warn("Reverse geocoding failed", map[string]interface{}{"error": err})
		return GeocodeResult{Address: fallback, Degraded: DegradedUpstreamError}
	}
}
