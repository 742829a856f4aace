package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
)

// ImagePayload is the body posted to the automation webhook.
type ImagePayload struct {
	ReceivedAt time.Time `json:"receivedAt"`
	From       string    `json:"from"`
	FromName   string    `json:"fromName,omitempty"`
	MessageID  string    `json:"messageId,omitempty"`
	ImageURL   string    `json:"imageUrl"`
	Caption    string    `json:"caption,omitempty"`
}

// WebhookForwarder posts image messages to an external automation.
type WebhookForwarder struct {
	client *http.Client
	logger *slog.Logger
	url    string
	retry  service.RetryOptions
}

// NewWebhookForwarder returns a forwarder for url. An empty url returns nil,
// which disables forwarding.
func NewWebhookForwarder(url string, client *http.Client, retry service.RetryOptions, logger *slog.Logger) *WebhookForwarder {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebhookForwarder{
		client: client,
		logger: common.LoggerOrDefault(logger).With("component", "webhook"),
		url:    url,
		retry:  retry,
	}
}

// Forward delivers msg. Server errors are retried, client errors are not.
func (f *WebhookForwarder) Forward(ctx context.Context, msg model.InboundMessage) error {
	body, err := json.Marshal(ImagePayload{
		ReceivedAt: msg.ReceivedAt.UTC(),
		From:       msg.SourceAddress,
		FromName:   msg.DisplayName,
		MessageID:  msg.MessageID,
		ImageURL:   msg.MediaRef,
		Caption:    msg.TextBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	return common.WithRetry(ctx, func() error {
		return f.post(ctx, body)
	}, f.retry)
}

func (f *WebhookForwarder) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return common.Permanent(fmt.Errorf("failed to create webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return common.ErrRateLimit
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return common.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
	return nil
}
