package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// StatusError indicates a non-2xx response from the delivery provider.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Code, e.Endpoint)
}

// isClientError reports whether the error is a 4xx the provider will never
// accept on retry.
func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}

// HTTPProvider talks to a Notify-style delivery API over HTTP.
type HTTPProvider struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
	senderID   string
}

// NewHTTP creates a provider client for the given API endpoint.
func NewHTTP(baseURL, apiKey, senderID string, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		baseURL:    baseURL,
		apiKey:     apiKey,
		senderID:   senderID,
	}
}

// SendEmail sends a templated email notification.
func (p *HTTPProvider) SendEmail(ctx context.Context, templateID, address string, personalisation map[string]string, reference string) error {
	return p.post(ctx, "/v2/notifications/email", map[string]any{
		"template_id":     templateID,
		"email_address":   address,
		"personalisation": personalisation,
		"reference":       reference,
	})
}

// SendSms sends a templated SMS notification.
func (p *HTTPProvider) SendSms(ctx context.Context, templateID, number string, personalisation map[string]string, reference, senderID string) error {
	if senderID == "" {
		senderID = p.senderID
	}
	return p.post(ctx, "/v2/notifications/sms", map[string]any{
		"template_id":     templateID,
		"phone_number":    number,
		"personalisation": personalisation,
		"reference":       reference,
		"sms_sender_id":   senderID,
	})
}

// SendLetter sends a templated letter for print and post.
func (p *HTTPProvider) SendLetter(ctx context.Context, templateID string, personalisation map[string]string, reference string) error {
	return p.post(ctx, "/v2/notifications/letter", map[string]any{
		"template_id":     templateID,
		"personalisation": personalisation,
		"reference":       reference,
	})
}

// SendPrecompiledLetter sends a document-assembled PDF for print and post.
func (p *HTTPProvider) SendPrecompiledLetter(ctx context.Context, reference string, document []byte) error {
	return p.post(ctx, "/v2/notifications/letter", map[string]any{
		"reference": reference,
		"content":   base64.StdEncoding.EncodeToString(document),
	})
}

func (p *HTTPProvider) post(ctx context.Context, endpoint string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal provider request: %w", err)
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+p.apiKey)

			startTime := time.Now()
			resp, err := p.httpClient.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				p.logger.Warn("Provider request failed, will retry",
					"endpoint", endpoint,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					p.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()
			_, _ = io.Copy(io.Discard, resp.Body)

			p.logger.Info("Provider request completed",
				"endpoint", endpoint,
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds())

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
			}
			return nil
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(time.Minute),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Info("Retrying provider send after error", "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			// A 4xx means the request itself is bad; retrying cannot help.
			return !isClientError(err)
		}),
	)
	if err != nil {
		return fmt.Errorf("after retries: %w", err)
	}
	return nil
}
