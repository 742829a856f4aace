package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/router"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSession struct {
	status    model.StatusRecord
	pairing   string
	connected bool
}

func (m *mockSession) IsConnected() bool { return m.connected }

func (m *mockSession) CurrentPairingCode() (string, bool) { return m.pairing, m.pairing != "" }

func (m *mockSession) Status() model.StatusRecord { return m.status }

type mockHandler struct {
	HandleFunc func(ctx context.Context, msg model.InboundMessage) (router.Result, error)
	last       model.InboundMessage
}

func (m *mockHandler) Handle(ctx context.Context, msg model.InboundMessage) (router.Result, error) {
	m.last = msg
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, msg)
	}
	return router.Result{Outcome: router.OutcomeHelp, Replied: true}, nil
}

type mockDocSender struct {
	to   string
	doc  transport.Document
	ok   bool
	sent int
}

func (m *mockDocSender) SendDocument(_ context.Context, to string, doc transport.Document) bool {
	m.sent++
	m.to = to
	m.doc = doc
	return m.ok
}

type mockDocuments struct {
	ResolveFunc func(ctx context.Context, ref service.DocumentRef) (transport.Document, error)
}

func (m *mockDocuments) Resolve(ctx context.Context, ref service.DocumentRef) (transport.Document, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, ref)
	}
	return transport.Document{URL: "https://clinic.example/docs/" + ref.DocumentID + ".pdf", FileName: ref.DocumentID + ".pdf"}, nil
}

type mockLister struct {
	ListFunc func(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error)
	last     service.TransactionFilter
}

func (m *mockLister) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	m.last = filter
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

type testServer struct {
	server   *Server
	session  *mockSession
	handler  *mockHandler
	sender   *mockDocSender
	docs     *mockDocuments
	lister   *mockLister
	received time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		session:  &mockSession{status: model.StatusRecord{Status: model.StatusDisconnected}},
		handler:  &mockHandler{},
		sender:   &mockDocSender{ok: true},
		docs:     &mockDocuments{},
		lister:   &mockLister{},
		received: time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
	srv, err := NewServer(Deps{
		Session:      ts.session,
		Messages:     ts.handler,
		Sender:       ts.sender,
		Documents:    ts.docs,
		Transactions: ts.lister,
		Now:          func() time.Time { return ts.received },
	})
	require.NoError(t, err)
	ts.server = srv
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(Deps{Messages: &mockHandler{}})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewServer(Deps{Session: &mockSession{}})
	require.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{name: "invalid json", body: "{", wantStatus: http.StatusBadRequest, wantError: "invalid JSON"},
		{name: "missing from", body: gin.H{"messageType": "text", "text": "oi"}, wantStatus: http.StatusBadRequest, wantError: "from"},
		{name: "missing type", body: gin.H{"from": "5511988887777", "text": "oi"}, wantStatus: http.StatusBadRequest, wantError: "messageType"},
		{name: "text without body", body: gin.H{"from": "5511988887777", "messageType": "text"}, wantStatus: http.StatusBadRequest, wantError: "text"},
		{name: "audio without url", body: gin.H{"from": "5511988887777", "messageType": "audio"}, wantStatus: http.StatusBadRequest, wantError: "audioUrl"},
		{name: "text", body: gin.H{"from": "5511988887777", "messageType": "text", "text": "oi", "messageId": "m1"}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(http.MethodPost, "/message", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			out := decode(t, w)
			if tt.wantError != "" {
				assert.Equal(t, false, out["success"])
				assert.Contains(t, out["error"], tt.wantError)
			} else {
				assert.Equal(t, true, out["success"])
			}
		})
	}
}

func TestPostMessageBuildsInbound(t *testing.T) {
	ts := newTestServer(t)
	ts.handler.HandleFunc = func(_ context.Context, _ model.InboundMessage) (router.Result, error) {
		return router.Result{Outcome: router.OutcomeRecorded, Replied: true, Transaction: &model.Transaction{ID: "txn-1"}}, nil
	}

	w := ts.do(http.MethodPost, "/message", gin.H{
		"from":        "5511988887777",
		"fromName":    "Ana",
		"messageType": "audio",
		"audioUrl":    "https://media.example/a.ogg",
		"messageId":   "m-9",
	})

	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "recorded", out["outcome"])
	assert.Equal(t, "txn-1", out["transactionId"])

	msg := ts.handler.last
	assert.Equal(t, model.KindAudio, msg.Kind)
	assert.Equal(t, "https://media.example/a.ogg", msg.MediaRef)
	assert.Equal(t, "m-9", msg.MessageID)
	assert.Equal(t, "Ana", msg.DisplayName)
	assert.Equal(t, ts.received, msg.ReceivedAt)
}

func TestPostMessagePersistenceFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.handler.HandleFunc = func(context.Context, model.InboundMessage) (router.Result, error) {
		return router.Result{}, errors.New("failed to save transaction: disk full")
	}

	w := ts.do(http.MethodPost, "/message", gin.H{"from": "5511988887777", "messageType": "text", "text": "gastei 10 reais"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "disk full")
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.session.status = model.StatusRecord{
		Status:         model.StatusWaitingQR,
		PairingPayload: "2@abc",
		UpdatedAt:      time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC),
	}

	w := ts.do(http.MethodGet, "/status", nil)

	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "waiting_qr", out["status"])
	assert.Equal(t, "2@abc", out["pairingPayload"])
	assert.Equal(t, false, out["connected"])

	ts.session.status = model.StatusRecord{Status: model.StatusConnected}
	ts.session.connected = true
	out = decode(t, ts.do(http.MethodGet, "/status", nil))
	assert.Equal(t, "connected", out["status"])
	assert.Nil(t, out["pairingPayload"])
	assert.Equal(t, true, out["connected"])
}

func TestGetQR(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/qr", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.session.pairing = "2@abc"
	w = ts.do(http.MethodGet, "/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2@abc", decode(t, w)["qr"])

	ts.session.connected = true
	w = ts.do(http.MethodGet, "/qr", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendDocument(t *testing.T) {
	valid := gin.H{
		"phone":            "+55 11 98888-7777",
		"patientId":        "p-1",
		"prescriptionId":   "42",
		"prescriptionType": "receita",
		"patientName":      "Maria",
	}

	t.Run("missing phone", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPost, "/send-document", gin.H{"prescriptionId": "42"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing prescription", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPost, "/send-document", gin.H{"phone": "5511988887777"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not connected", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do(http.MethodPost, "/send-document", valid)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, 0, ts.sender.sent)
	})

	t.Run("sent", func(t *testing.T) {
		ts := newTestServer(t)
		ts.session.connected = true
		w := ts.do(http.MethodPost, "/send-document", valid)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5511988887777@s.whatsapp.net", ts.sender.to)
		assert.Equal(t, "42.pdf", ts.sender.doc.FileName)
	})

	t.Run("resolve failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.session.connected = true
		ts.docs.ResolveFunc = func(context.Context, service.DocumentRef) (transport.Document, error) {
			return transport.Document{}, errors.New("render failed")
		}
		w := ts.do(http.MethodPost, "/send-document", valid)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("send failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.session.connected = true
		ts.sender.ok = false
		w := ts.do(http.MethodPost, "/send-document", valid)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetTransactions(t *testing.T) {
	ts := newTestServer(t)
	ts.lister.ListFunc = func(context.Context, service.TransactionFilter) ([]model.Transaction, error) {
		return []model.Transaction{{
			ID:         "t-1",
			Amount:     decimal.RequireFromString("50"),
			Direction:  model.DirectionExpense,
			Category:   "Alimentação",
			ContextTag: model.ContextHome,
			OccurredOn: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		}}, nil
	}

	w := ts.do(http.MethodGet, "/transactions?from=2024-03-01&to=2024-03-31&context=home&direction=expense&limit=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 1, out["count"])
	items := out["transactions"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "50.00", first["amount"])
	assert.Equal(t, "2024-03-05", first["date"])

	filter := ts.lister.last
	require.NotNil(t, filter.StartDate)
	assert.Equal(t, "2024-03-01", filter.StartDate.Format(dateLayout))
	assert.Equal(t, model.ContextHome, filter.ContextTag)
	assert.Equal(t, model.DirectionExpense, filter.Direction)
	assert.Equal(t, 10, filter.Limit)
}

func TestGetTransactionsBadQuery(t *testing.T) {
	for _, query := range []string{"from=03/01/2024", "context=office", "direction=sideways", "limit=-1"} {
		t.Run(query, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(http.MethodGet, "/transactions?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ts.server.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
