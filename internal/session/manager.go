// Package session owns the lifecycle of the single messaging network session.
//
// A Manager runs one dispatcher goroutine (Run). Every transport event, every
// reconnect timer and every state transition is handled on that goroutine, so
// connection state has exactly one writer. Other goroutines read state through
// IsConnected, CurrentPairingCode and Status, which load an immutable snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
)

// MessageHandler receives inbound messages. It runs on the dispatcher
// goroutine and must hand work off instead of processing inline.
type MessageHandler func(ctx context.Context, msgs []transport.Message)

// Options configures a Manager.
type Options struct {
	Transport   transport.Transport
	Credentials service.CredentialStore
	Status      service.StatusPublisher
	OnMessages  MessageHandler
	Clock       Clock
	Logger      *slog.Logger
	Policy      Policy
}

type snapshot struct {
	updatedAt time.Time
	pairing   string
	state     model.ConnectionState
	attempts  int
}

// pairingPayload is the code to show, which exists only while waiting for a scan.
func (s *snapshot) pairingPayload() string {
	if s.state != model.StateWaitingForPairing {
		return ""
	}
	return s.pairing
}

type connHolder struct {
	conn transport.Connection
}

type inboxItem struct {
	event  transport.Event
	gen    uint64
	closed bool
}

// Manager is the session state machine.
type Manager struct {
	transport  transport.Transport
	creds      service.CredentialStore
	status     service.StatusPublisher
	onMessages MessageHandler
	clock      Clock
	logger     *slog.Logger
	policy     Policy

	// Owned by the dispatcher goroutine.
	conn       transport.Connection
	timer      Timer
	pairing    string
	generation uint64
	timerSeq   uint64
	attempts   int
	state      model.ConnectionState

	// Set once a failed Start has scheduled its single retry.
	startRetried bool

	snap atomic.Pointer[snapshot]
	live atomic.Pointer[connHolder]

	inbox     chan inboxItem
	wake      chan uint64
	done      chan struct{}
	closeOnce sync.Once
}

// New builds a Manager in the Closed state.
func New(opts Options) (*Manager, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("%w: transport", common.ErrMissingConfig)
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("%w: credential store", common.ErrMissingConfig)
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}

	m := &Manager{
		transport:  opts.Transport,
		creds:      opts.Credentials,
		status:     opts.Status,
		onMessages: opts.OnMessages,
		clock:      opts.Clock,
		logger:     common.LoggerOrDefault(opts.Logger).With("component", "session"),
		policy:     opts.Policy.withDefaults(),
		state:      model.StateClosed,
		inbox:      make(chan inboxItem),
		wake:       make(chan uint64),
		done:       make(chan struct{}),
	}
	m.commit()
	return m, nil
}

// Run starts the session and dispatches events until ctx is canceled.
// It must be called at most once.
func (m *Manager) Run(ctx context.Context) error {
	defer m.closeOnce.Do(func() { close(m.done) })

	_ = m.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			m.shutdown(context.WithoutCancel(ctx))
			return nil

		case seq := <-m.wake:
			if seq != m.timerSeq {
				continue // canceled after it fired
			}
			m.timer = nil
			_ = m.Start(ctx)

		case item := <-m.inbox:
			if item.gen != m.generation {
				continue // from a connection that was already replaced
			}
			if item.closed {
				if m.state != model.StateClosed {
					m.OnConnectionUpdate(ctx, transport.ConnectionUpdate{
						Phase:       transport.PhaseClose,
						CloseReason: "event stream ended",
					})
				}
				continue
			}
			m.dispatch(ctx, item.event)
		}
	}
}

// Start loads credentials and opens a new connection. A transport that cannot
// be constructed is retried once after Policy.StartRetryDelay; if the retry
// fails too the session stays Closed. The returned error is informational.
//
// Start is not safe to call while another attempt is in flight. Run serializes
// it by only scheduling a new Start after a Closed transition.
func (m *Manager) Start(ctx context.Context) error {
	m.cancelTimer()
	m.closeConn()

	m.state = model.StateConnecting
	m.commit()
	m.publish(ctx)

	creds, err := m.creds.Load(ctx)
	if err != nil {
		return m.startFailed(ctx, fmt.Errorf("failed to load credentials: %w", err))
	}

	m.logger.Info("session_start", "has_credentials", !creds.IsEmpty())

	conn, err := m.transport.Connect(ctx, creds)
	if err != nil {
		return m.startFailed(ctx, fmt.Errorf("failed to connect transport: %w", err))
	}

	m.generation++
	m.conn = conn
	m.live.Store(&connHolder{conn: conn})
	go m.pump(m.generation, conn.Events())
	return nil
}

func (m *Manager) startFailed(ctx context.Context, err error) error {
	m.state = model.StateClosed
	m.commit()
	m.publish(ctx)

	if ctx.Err() != nil {
		return err
	}

	if m.startRetried {
		m.logger.Error("session_connect_failed",
			"error", err,
			"action", "manual restart required")
		return err
	}

	m.startRetried = true
	m.logger.Error("session_connect_failed",
		"error", err,
		"retry_in", m.policy.StartRetryDelay.String())
	m.schedule(m.policy.StartRetryDelay)
	return err
}

func (m *Manager) pump(gen uint64, events <-chan transport.Event) {
	for ev := range events {
		select {
		case m.inbox <- inboxItem{gen: gen, event: ev}:
		case <-m.done:
			return
		}
	}
	select {
	case m.inbox <- inboxItem{gen: gen, closed: true}:
	case <-m.done:
	}
}

func (m *Manager) dispatch(ctx context.Context, ev transport.Event) {
	switch ev.Type {
	case transport.EventCredentialsUpdated:
		if ev.Credentials != nil {
			_ = m.OnCredentialsUpdate(ctx, *ev.Credentials)
		}
	case transport.EventConnectionUpdate:
		if ev.Connection != nil {
			m.OnConnectionUpdate(ctx, *ev.Connection)
		}
	case transport.EventMessages:
		if m.onMessages != nil && len(ev.Messages) > 0 {
			m.onMessages(ctx, ev.Messages)
		}
	default:
		m.logger.Debug("session_event_ignored", "type", ev.Type)
	}
}

// OnConnectionUpdate advances the state machine. It must only be called from
// the dispatcher goroutine.
func (m *Manager) OnConnectionUpdate(ctx context.Context, upd transport.ConnectionUpdate) {
	if upd.PairingPayload != "" {
		m.state = model.StateWaitingForPairing
		m.pairing = upd.PairingPayload
		m.commit()
		m.publish(ctx)
		m.logger.Info("session_pairing_required")
	}

	switch upd.Phase {
	case transport.PhaseConnecting:
		if m.state != model.StateWaitingForPairing {
			m.state = model.StateConnecting
			m.commit()
			m.publish(ctx)
		}

	case transport.PhaseOpen:
		m.state = model.StateOpen
		m.pairing = ""
		m.attempts = 0
		m.startRetried = false
		m.commit()
		m.publish(ctx)
		m.logger.Info("session_open")

	case transport.PhaseClose:
		m.onClose(ctx, upd)

	case transport.PhaseNone:
	}
}

func (m *Manager) onClose(ctx context.Context, upd transport.ConnectionUpdate) {
	logout := upd.IsLogout()

	m.state = model.StateClosed
	m.pairing = ""
	m.closeConn()
	m.commit()
	m.publish(ctx)

	m.logger.Warn("session_closed",
		"reason", upd.CloseReason,
		"status_code", upd.CloseStatusCode,
		"logout", logout)

	if logout {
		m.cancelTimer()
		if err := m.creds.Purge(ctx); err != nil {
			m.logger.Error("session_credentials_purge_failed", "error", err)
		}
		m.attempts = 0
		m.commit()
		m.logger.Warn("session_logged_out", "action", "pair again to reconnect")
		return
	}

	if m.attempts >= m.policy.MaxAttempts {
		m.logger.Error("session_reconnect_exhausted",
			"attempts", m.attempts,
			"action", "manual restart required")
		return
	}

	m.attempts++
	m.startRetried = false
	m.commit()
	delay := m.policy.Backoff(m.attempts)
	m.logger.Info("session_reconnect_scheduled",
		"attempt", m.attempts,
		"max_attempts", m.policy.MaxAttempts,
		"delay", delay.String())
	m.schedule(delay)
}

// OnCredentialsUpdate writes creds through to the credential store.
func (m *Manager) OnCredentialsUpdate(ctx context.Context, creds transport.Credentials) error {
	if err := m.creds.Save(ctx, creds); err != nil {
		m.logger.Error("session_credentials_save_failed", "error", err)
		return err
	}
	return nil
}

func (m *Manager) schedule(d time.Duration) {
	m.cancelTimer()
	m.timerSeq++
	seq := m.timerSeq
	m.timer = m.clock.AfterFunc(d, func() {
		select {
		case m.wake <- seq:
		case <-m.done:
		}
	})
}

func (m *Manager) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	// Invalidates a timer that fired but has not been received yet.
	m.timerSeq++
}

func (m *Manager) closeConn() {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(); err != nil {
		m.logger.Debug("session_connection_close_error", "error", err)
	}
	m.conn = nil
	m.live.Store(nil)
	m.generation++
}

func (m *Manager) shutdown(ctx context.Context) {
	m.cancelTimer()
	m.closeConn()
	if m.state != model.StateClosed {
		m.state = model.StateClosed
		m.commit()
		m.publish(ctx)
	}
	m.logger.Info("session_stopped")
}

func (m *Manager) commit() {
	m.snap.Store(&snapshot{
		state:     m.state,
		pairing:   m.pairing,
		attempts:  m.attempts,
		updatedAt: m.clock.Now(),
	})
}

func (m *Manager) publish(ctx context.Context) {
	if m.status == nil {
		return
	}
	snap := m.snap.Load()
	record := model.StatusRecord{
		Status:    publishedStatus(snap.state),
		UpdatedAt: snap.updatedAt.UTC(),
	}
	record.PairingPayload = snap.pairingPayload()
	if err := m.status.PublishStatus(ctx, record); err != nil {
		m.logger.Warn("session_status_publish_failed", "status", record.Status, "error", err)
	}
}

func publishedStatus(state model.ConnectionState) model.PublishedStatus {
	switch state {
	case model.StateConnecting:
		return model.StatusConnecting
	case model.StateWaitingForPairing:
		return model.StatusWaitingQR
	case model.StateOpen:
		return model.StatusConnected
	default:
		return model.StatusDisconnected
	}
}

// State returns the current connection state.
func (m *Manager) State() model.ConnectionState {
	return m.snap.Load().state
}

// IsConnected reports whether the session is Open.
func (m *Manager) IsConnected() bool {
	return m.State() == model.StateOpen
}

// CurrentPairingCode returns the pairing payload awaiting a scan, if any.
func (m *Manager) CurrentPairingCode() (string, bool) {
	code := m.snap.Load().pairingPayload()
	return code, code != ""
}

// ReconnectAttempts returns the number of reconnects scheduled since the
// session was last Open.
func (m *Manager) ReconnectAttempts() int {
	return m.snap.Load().attempts
}

// Status returns the externally visible status record.
func (m *Manager) Status() model.StatusRecord {
	snap := m.snap.Load()
	record := model.StatusRecord{
		Status:    publishedStatus(snap.state),
		UpdatedAt: snap.updatedAt.UTC(),
	}
	record.PairingPayload = snap.pairingPayload()
	return record
}

func (m *Manager) connection() (transport.Connection, error) {
	if !m.IsConnected() {
		return nil, common.ErrNotConnected
	}
	holder := m.live.Load()
	if holder == nil {
		return nil, common.ErrNotConnected
	}
	return holder.conn, nil
}

// SendText sends body to address over the live connection.
func (m *Manager) SendText(ctx context.Context, address, body string) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	return conn.SendText(ctx, address, body)
}

// SendDocument sends doc to address over the live connection.
func (m *Manager) SendDocument(ctx context.Context, address string, doc transport.Document) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	return conn.SendDocument(ctx, address, doc)
}

// CheckExists asks the network whether address is registered.
func (m *Manager) CheckExists(ctx context.Context, address string) (bool, string, error) {
	conn, err := m.connection()
	if err != nil {
		return false, "", err
	}
	return conn.CheckExists(ctx, address)
}

// ErrStopped is returned by Wait when the manager stopped before reaching Open.
var ErrStopped = errors.New("session stopped")

// Wait blocks until the session is Open, ctx is done, or Run has returned.
func (m *Manager) Wait(ctx context.Context, poll time.Duration) error {
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if m.IsConnected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrStopped
		case <-ticker.C:
		}
	}
}
