package provider

import (
	"context"
	"log/slog"
)

// MockProvider logs deliveries instead of sending them, for local development.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock delivery provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// SendEmail logs the email instead of sending it.
func (m *MockProvider) SendEmail(_ context.Context, templateID, address string, _ map[string]string, reference string) error {
	m.logger.Info("MOCK EMAIL", "template_id", templateID, "to", address, "reference", reference)
	return nil
}

// SendSms logs the SMS instead of sending it.
func (m *MockProvider) SendSms(_ context.Context, templateID, number string, _ map[string]string, reference, senderID string) error {
	m.logger.Info("MOCK SMS", "template_id", templateID, "to", number, "reference", reference, "sender_id", senderID)
	return nil
}

// SendLetter logs the letter instead of sending it.
func (m *MockProvider) SendLetter(_ context.Context, templateID string, _ map[string]string, reference string) error {
	m.logger.Info("MOCK LETTER", "template_id", templateID, "reference", reference)
	return nil
}

// SendPrecompiledLetter logs the precompiled letter instead of sending it.
func (m *MockProvider) SendPrecompiledLetter(_ context.Context, reference string, document []byte) error {
	m.logger.Info("MOCK PRECOMPILED LETTER", "reference", reference, "bytes", len(document))
	return nil
}
