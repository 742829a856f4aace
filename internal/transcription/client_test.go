package transcription

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	auth     string
	model    string
	language string
	fileName string
	audio    []byte
}

func newTestServer(t *testing.T, status int, response any) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}

	mux := http.NewServeMux()
	mux.HandleFunc("/media/note.ogg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OggS-fake-audio"))
	})
	mux.HandleFunc("/media/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/media/missing.ogg", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		captured.model = r.FormValue("model")
		captured.language = r.FormValue("language")
		file, header, err := r.FormFile("file")
		if err == nil {
			captured.fileName = header.Filename
			captured.audio, _ = io.ReadAll(file)
			_ = file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultModel, c.model)

	c, err = New(Config{APIKey: "k", BaseURL: "http://local/v1/", Model: "whisper-large"})
	require.NoError(t, err)
	assert.Equal(t, "http://local/v1", c.baseURL)
	assert.Equal(t, "whisper-large", c.model)
}

func TestTranscribe(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, map[string]string{"text": "  gastei 50 reais no mercado "})

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	text, err := c.Transcribe(context.Background(), srv.URL+"/media/note.ogg", "pt")
	require.NoError(t, err)

	assert.Equal(t, "gastei 50 reais no mercado", text)
	assert.Equal(t, "Bearer test-key", captured.auth)
	assert.Equal(t, DefaultModel, captured.model)
	assert.Equal(t, "pt", captured.language)
	assert.Equal(t, "note.ogg", captured.fileName)
	assert.Equal(t, []byte("OggS-fake-audio"), captured.audio)
}

func TestTranscribeDefaultsLanguage(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, map[string]string{"text": "oi"})
	c, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), srv.URL+"/media/note.ogg", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, captured.language)
}

func TestTranscribeFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response any
		path     string
		contains string
	}{
		{name: "api error", status: http.StatusInternalServerError, response: map[string]string{"error": "boom"}, path: "/media/note.ogg", contains: "status 500"},
		{name: "rate limited", status: http.StatusTooManyRequests, response: map[string]string{"error": "slow down"}, path: "/media/note.ogg", contains: "rate limit"},
		{name: "empty transcript", status: http.StatusOK, response: map[string]string{"text": "   "}, path: "/media/note.ogg", contains: "empty transcript"},
		{name: "audio not found", status: http.StatusOK, response: map[string]string{"text": "x"}, path: "/media/missing.ogg", contains: "status 404"},
		{name: "audio empty", status: http.StatusOK, response: map[string]string{"text": "x"}, path: "/media/empty", contains: "audio is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.response)
			c, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
			require.NoError(t, err)

			_, err = c.Transcribe(context.Background(), srv.URL+tt.path, "pt")
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrTranscriptionFailed)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestTranscribeRejectsOversizedAudio(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, map[string]string{"text": "x"})
	c, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1", MaxAudioBytes: 4})
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), srv.URL+"/media/note.ogg", "pt")
	require.ErrorIs(t, err, common.ErrTranscriptionFailed)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestTranscribeRequiresURL(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), " ", "pt")
	require.ErrorIs(t, err, common.ErrTranscriptionFailed)
	assert.ErrorIs(t, err, common.ErrMissingField)
}

func TestAudioFileName(t *testing.T) {
	assert.Equal(t, "note.ogg", audioFileName("/media/note.ogg"))
	assert.Equal(t, "audio.ogg", audioFileName("/media/empty"))
	assert.Equal(t, "audio.ogg", audioFileName(""))
}
