// Package provider handles delivery of notifications through the external
// delivery provider's API.
package provider

import "context"

// Provider is the outbound delivery contract. Per-call timeouts and
// transport-level retries live behind this boundary.
type Provider interface {
	SendEmail(ctx context.Context, templateID, address string, personalisation map[string]string, reference string) error
	SendSms(ctx context.Context, templateID, number string, personalisation map[string]string, reference, senderID string) error
	SendLetter(ctx context.Context, templateID string, personalisation map[string]string, reference string) error
	SendPrecompiledLetter(ctx context.Context, reference string, document []byte) error
}
