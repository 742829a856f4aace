// Package transcription converts voice notes to text through an
// OpenAI-compatible /audio/transcriptions endpoint.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the speech-to-text model requested when none is configured.
	DefaultModel = "whisper-1"
	// DefaultLanguage is the language hint for voice notes.
	DefaultLanguage = "pt"

	defaultMaxAudioBytes = 25 << 20
)

// Config configures a Client.
type Config struct {
	HTTPClient    *http.Client
	Logger        *slog.Logger
	BaseURL       string
	APIKey        string
	Model         string
	MaxAudioBytes int64
}

// Client performs one transcription per call. It does not retry.
type Client struct {
	httpClient    *http.Client
	logger        *slog.Logger
	baseURL       string
	apiKey        string
	model         string
	maxAudioBytes int64
}

var _ service.Transcriber = (*Client)(nil)

// New returns a Client for cfg.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: transcription.api_key", common.ErrMissingConfig)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	maxBytes := cfg.MaxAudioBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxAudioBytes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		httpClient:    httpClient,
		logger:        common.LoggerOrDefault(cfg.Logger).With("component", "transcription"),
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		model:         model,
		maxAudioBytes: maxBytes,
	}, nil
}

// Transcribe downloads the audio at audioURL and returns its transcript.
// Every failure wraps common.ErrTranscriptionFailed.
func (c *Client) Transcribe(ctx context.Context, audioURL, language string) (string, error) {
	if strings.TrimSpace(audioURL) == "" {
		return "", fmt.Errorf("%w: %w", common.ErrTranscriptionFailed, common.MissingField("audioUrl"))
	}
	if language == "" {
		language = DefaultLanguage
	}

	audio, fileName, err := c.fetchAudio(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTranscriptionFailed, err)
	}

	text, err := c.post(ctx, audio, fileName, language)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTranscriptionFailed, err)
	}

	c.logger.Debug("transcription_complete", "bytes", len(audio), "chars", len(text))
	return text, nil
}

func (c *Client) fetchAudio(ctx context.Context, audioURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create audio request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("audio download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("audio download returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, c.maxAudioBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio: %w", err)
	}
	if int64(len(audio)) > c.maxAudioBytes {
		return nil, "", fmt.Errorf("audio exceeds %d bytes", c.maxAudioBytes)
	}
	if len(audio) == 0 {
		return nil, "", errors.New("audio is empty")
	}

	return audio, audioFileName(req.URL.Path), nil
}

func (c *Client) post(ctx context.Context, audio []byte, fileName, language string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	for key, value := range map[string]string{
		"model":           c.model,
		"language":        language,
		"response_format": "json",
	} {
		if err := form.WriteField(key, value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", common.ErrRateLimit, string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, string(raw))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", errors.New("empty transcript")
	}
	return text, nil
}

func audioFileName(urlPath string) string {
	name := path.Base(urlPath)
	if name == "" || name == "." || name == "/" || !strings.Contains(name, ".") {
		return "audio.ogg"
	}
	return name
}
