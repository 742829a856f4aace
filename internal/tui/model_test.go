package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	err    error
	record model.StatusRecord
	calls  int
}

func (s *stubFetcher) FetchStatus(context.Context) (model.StatusRecord, error) {
	s.calls++
	return s.record, s.err
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModelShowsPairingPayload(t *testing.T) {
	fetcher := &stubFetcher{}
	m := newModel(Config{Fetcher: fetcher})
	assert.Contains(t, m.View(), "contacting service")

	m, cmd := update(t, m, statusMsg{record: model.StatusRecord{Status: model.StatusWaitingQR, PairingPayload: "2@abc"}, at: time.Now()})
	assert.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "waiting for pairing")
	assert.Contains(t, view, "2@abc")
}

func TestModelKeepsLastRecordOnError(t *testing.T) {
	m := newModel(Config{Fetcher: &stubFetcher{}})

	m, _ = update(t, m, statusMsg{record: model.StatusRecord{Status: model.StatusConnected}})
	m, _ = update(t, m, statusMsg{err: errors.New("connection refused")})

	assert.Equal(t, model.StatusConnected, m.Record().Status)
	assert.Contains(t, m.View(), "connection refused")
}

func TestModelExitOnConnect(t *testing.T) {
	m := newModel(Config{Fetcher: &stubFetcher{}, ExitOnConnect: true})

	m, cmd := update(t, m, statusMsg{record: model.StatusRecord{Status: model.StatusConnected}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestModelIgnoresStaleTicks(t *testing.T) {
	fetcher := &stubFetcher{record: model.StatusRecord{Status: model.StatusConnecting}}
	m := newModel(Config{Fetcher: fetcher})

	m, _ = update(t, m, statusMsg{record: fetcher.record})
	m, _ = update(t, m, statusMsg{record: fetcher.record})
	require.Equal(t, 2, m.seq)

	_, cmd := update(t, m, tickMsg{seq: 1})
	assert.Nil(t, cmd)

	m, cmd = update(t, m, tickMsg{seq: 2})
	require.NotNil(t, cmd)
	assert.True(t, m.fetching)

	msg := cmd()
	assert.IsType(t, statusMsg{}, msg)
	assert.Equal(t, 1, fetcher.calls)
}

func TestModelQuitKey(t *testing.T) {
	m := newModel(Config{Fetcher: &stubFetcher{}})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
}

func TestModelRefreshWhileFetchingIsIgnored(t *testing.T) {
	m := newModel(Config{Fetcher: &stubFetcher{}})
	require.True(t, m.fetching)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, cmd)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"waiting_qr","connected":false,"updatedAt":"2024-03-10T09:00:00Z","pairingPayload":"2@abc"}`))
	}))
	defer srv.Close()

	record, err := HTTPFetcher{BaseURL: srv.URL + "/"}.FetchStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitingQR, record.Status)
	assert.Equal(t, "2@abc", record.PairingPayload)
	assert.Equal(t, 2024, record.UpdatedAt.Year())
}

func TestHTTPFetcherNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := HTTPFetcher{BaseURL: srv.URL}.FetchStatus(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestRunRequiresFetcher(t *testing.T) {
	_, err := Run(context.Background(), Config{})
	assert.Error(t, err)
}
