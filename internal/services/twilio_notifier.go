package services

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// RateLimiter throttles outbound notifications per phone number.
type RateLimiter interface {
	Allow(phoneNumber string) error
}

// TwilioNotifier implements Notifier using the Twilio API.
type TwilioNotifier struct {
	client      *twilio.RestClient
	fromNumber  string
	logger      *logrus.Logger
	breaker     *gobreaker.CircuitBreaker
	rateLimiter RateLimiter
}

// NewTwilioNotifier creates a Twilio-backed notifier.
func NewTwilioNotifier(accountSID, authToken, fromNumber string, rateLimiter RateLimiter, logger *logrus.Logger) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "twilio",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &TwilioNotifier{
		client:      client,
		fromNumber:  fromNumber,
		logger:      logger,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}
}

// SendSummary sends a batch run summary to the operator.
func (n *TwilioNotifier) SendSummary(phoneNumber, summary string) error {
	return n.send(phoneNumber, summary)
}

// SendAlert sends a failure alert to the operator.
func (n *TwilioNotifier) SendAlert(phoneNumber, message string) error {
	return n.send(phoneNumber, fmt.Sprintf("ALERT: %s", message))
}

func (n *TwilioNotifier) send(phoneNumber, message string) error {
	normalized, err := n.normalizePhoneNumber(phoneNumber)
	if err != nil {
		return fmt.Errorf("invalid phone number format: %w", err)
	}

	if n.rateLimiter != nil {
		if err := n.rateLimiter.Allow(normalized); err != nil {
			n.logger.Warnf("Twilio SMS: rate limited for %s", normalized)
			return fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(normalized)
	params.SetFrom(n.fromNumber)
	params.SetBody(message)

	resp, err := n.breaker.Execute(func() (interface{}, error) {
		return n.client.Api.CreateMessage(params)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("SMS service temporarily unavailable")
	}
	if err != nil {
		n.logger.Errorf("Twilio SMS: API error - %v", err)
		return n.mapTwilioError(err)
	}

	if msg, ok := resp.(*twilioApi.ApiV2010Message); ok && msg.Sid != nil {
		n.logger.Infof("Twilio SMS: message sent (SID: %s)", *msg.Sid)
	} else {
		n.logger.Infof("Twilio SMS: message sent")
	}

	return nil
}

// normalizePhoneNumber ensures phone number is in E.164 format
func (n *TwilioNotifier) normalizePhoneNumber(phone string) (string, error) {
	re := regexp.MustCompile(`[^\d+]`)
	cleaned := re.ReplaceAllString(phone, "")

	if !regexp.MustCompile(`^\+`).MatchString(cleaned) {
		// assume UK number if no country code
		if regexp.MustCompile(`^0\d{10}$`).MatchString(cleaned) {
			cleaned = "+44" + cleaned[1:]
		} else {
			return "", fmt.Errorf("invalid phone number format")
		}
	}

	if !regexp.MustCompile(`^\+[1-9]\d{1,14}$`).MatchString(cleaned) {
		return "", fmt.Errorf("invalid phone number format")
	}

	return cleaned, nil
}

// mapTwilioError maps Twilio-specific errors to user-friendly messages
func (n *TwilioNotifier) mapTwilioError(err error) error {
	errStr := err.Error()

	switch {
	case regexp.MustCompile(`(?i)invalid.*phone.*number`).MatchString(errStr):
		return fmt.Errorf("invalid phone number")
	case regexp.MustCompile(`(?i)unverified.*number`).MatchString(errStr):
		return fmt.Errorf("phone number not verified for trial account")
	case regexp.MustCompile(`(?i)insufficient.*funds`).MatchString(errStr):
		return fmt.Errorf("SMS service temporarily unavailable")
	case regexp.MustCompile(`(?i)rate.*limit`).MatchString(errStr):
		return fmt.Errorf("too many SMS requests, please try again later")
	default:
		return fmt.Errorf("failed to send SMS: %w", err)
	}
}
