package services

import (
	"github.com/sirupsen/logrus"
)

// Notifier delivers operator notifications: batch run summaries and failure
// alerts.
type Notifier interface {
	SendSummary(phoneNumber, summary string) error
	SendAlert(phoneNumber, message string) error
}

// MockNotifier for development - logs instead of sending real SMS
type MockNotifier struct {
	logger *logrus.Logger
}

func NewMockNotifier(logger *logrus.Logger) *MockNotifier {
	return &MockNotifier{logger: logger}
}

func (n *MockNotifier) SendSummary(phoneNumber, summary string) error {
	n.logger.Infof("MOCK SMS summary to %s: %s", phoneNumber, summary)
	return nil
}

func (n *MockNotifier) SendAlert(phoneNumber, message string) error {
	n.logger.Warnf("MOCK SMS alert to %s: %s", phoneNumber, message)
	return nil
}
