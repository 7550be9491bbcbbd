package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/campussafe/internal/logging"
	"github.com/HammerMeetNail/campussafe/internal/metrics"
	"github.com/HammerMeetNail/campussafe/internal/validation"
)

const (
	DefaultCountryCode = "1"
	maxConcurrentSends = 10
)

var (
	ErrSMSNotConfigured   = errors.New("sms provider not configured")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
)

type SMSMessage struct {
	To   string
	Body string
}

// DispatchResult lists destinations by outcome, in input order.
type DispatchResult struct {
	Successful []string `json:"successful"`
	Failed     []string `json:"failed"`
}

// SMSSender delivers one text message to an E.164 number.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// twilioMessageAPI is satisfied by the Twilio REST client's Api service.
type twilioMessageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type TwilioSender struct {
	api  twilioMessageAPI
	from string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, from: from}
}

func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	msg, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if msg != nil && msg.ErrorCode != nil {
		return fmt.Errorf("twilio error code %d", *msg.ErrorCode)
	}
	return nil
}

// FormatPhoneNumber normalizes a number using the default country code.
func FormatPhoneNumber(raw string) string {
	return formatPhoneNumber(raw, DefaultCountryCode)
}

// formatPhoneNumber keeps a leading + and digits. Bare ten-digit numbers get
// the country code; anything else is assumed to carry one already. Numbers
// too short to dial come back empty.
func formatPhoneNumber(raw, countryCode string) string {
	trimmed := strings.TrimSpace(raw)
	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < validation.MinPhoneDigits {
		return ""
	}

	if !strings.HasPrefix(trimmed, "+") && len(d) == validation.MinPhoneDigits {
		return "+" + countryCode + d
	}
	return "+" + d
}

// Dispatcher fans a batch of messages out to an SMSSender.
type Dispatcher struct {
	sender      SMSSender
	countryCode string
}

// NewDispatcher accepts a nil sender; every message then fails.
func NewDispatcher(sender SMSSender, countryCode string) *Dispatcher {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &Dispatcher{sender: sender, countryCode: strings.TrimPrefix(countryCode, "+")}
}

// SendBulk sends every message concurrently and waits for all of them.
// Individual failures are reported in the result, never returned.
func (d *Dispatcher) SendBulk(ctx context.Context, messages []SMSMessage) DispatchResult {
	destinations := make([]string, len(messages))
	errs := make([]error, len(messages))

	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)

	for i, msg := range messages {
		destinations[i] = formatPhoneNumber(msg.To, d.countryCode)
		if destinations[i] == "" {
			destinations[i] = msg.To
			errs[i] = ErrInvalidPhoneNumber
			continue
		}
		if d.sender == nil {
			errs[i] = ErrSMSNotConfigured
			continue
		}

		g.Go(func() error {
			errs[i] = d.sender.Send(ctx, destinations[i], msg.Body)
			return nil
		})
	}
	_ = g.Wait()

	result := DispatchResult{Successful: []string{}, Failed: []string{}}
	for i, err := range errs {
		if err != nil {
			result.Failed = append(result.Failed, destinations[i])
			logging.Warn("SMS delivery failed", map[string]interface{}{
				"to":    maskPhone(destinations[i]),
				"error": err,
			})
			continue
		}
		result.Successful = append(result.Successful, destinations[i])
	}

	metrics.SMSDispatched.WithLabelValues("success").Add(float64(len(result.Successful)))
	metrics.SMSDispatched.WithLabelValues("failure").Add(float64(len(result.Failed)))

	return result
}

// maskPhone keeps the last four digits for logs.
func maskPhone(number string) string {
	if len(number) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
