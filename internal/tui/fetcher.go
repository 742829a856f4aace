package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
)

// HTTPFetcher polls the status endpoint of a running service.
type HTTPFetcher struct {
	Client  *http.Client
	BaseURL string
}

type statusResponse struct {
	UpdatedAt      time.Time             `json:"updatedAt"`
	PairingPayload *string               `json:"pairingPayload"`
	Status         model.PublishedStatus `json:"status"`
}

// FetchStatus implements StatusFetcher.
func (f HTTPFetcher) FetchStatus(ctx context.Context) (model.StatusRecord, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	url := strings.TrimRight(f.BaseURL, "/") + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.StatusRecord{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.StatusRecord{}, fmt.Errorf("status request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return model.StatusRecord{}, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.StatusRecord{}, fmt.Errorf("failed to decode status: %w", err)
	}

	record := model.StatusRecord{Status: body.Status, UpdatedAt: body.UpdatedAt}
	if body.PairingPayload != nil {
		record.PairingPayload = *body.PairingPayload
	}
	return record, nil
}
