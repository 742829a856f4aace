package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	eventBuffer           = 32
)

// Config configures a Client.
type Config struct {
	Dialer         *websocket.Dialer
	Logger         *slog.Logger
	URL            string
	Token          string
	RequestTimeout time.Duration
}

// Client dials the gateway. It satisfies transport.Transport.
type Client struct {
	dialer         websocket.Dialer
	logger         *slog.Logger
	url            string
	token          string
	requestTimeout time.Duration
}

var _ transport.Transport = (*Client)(nil)

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("%w: transport.url", common.ErrMissingConfig)
	}
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return nil, fmt.Errorf("%w: transport.url must be ws:// or wss://, got %q", common.ErrInvalidConfig, url)
	}

	dialer := *websocket.DefaultDialer
	if cfg.Dialer != nil {
		dialer = *cfg.Dialer
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		dialer:         dialer,
		logger:         common.LoggerOrDefault(cfg.Logger).With("component", "wsbridge"),
		url:            url,
		token:          strings.TrimSpace(cfg.Token),
		requestTimeout: timeout,
	}, nil
}

// Connect dials the gateway and hands it the stored credentials. An empty
// credential set asks the gateway to start pairing.
func (c *Client) Connect(ctx context.Context, creds transport.Credentials) (transport.Connection, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	ws, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	conn := &Conn{
		ws:      ws,
		events:  make(chan transport.Event, eventBuffer),
		pending: make(map[string]chan Frame),
		closed:  make(chan struct{}),
		timeout: c.requestTimeout,
		logger:  c.logger,
	}

	hello := Frame{Type: FrameHello, ID: uuid.NewString()}
	if !creds.IsEmpty() {
		hello.Credentials = &creds
	}
	if err := conn.write(hello); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}

	go conn.readLoop()
	return conn, nil
}

// Conn is one gateway session.
type Conn struct {
	ws        *websocket.Conn
	events    chan transport.Event
	pending   map[string]chan Frame
	closed    chan struct{}
	logger    *slog.Logger
	timeout   time.Duration
	writeMu   sync.Mutex
	pendingMu sync.Mutex
	closeOnce sync.Once
}

var _ transport.Connection = (*Conn)(nil)

// Events returns the event stream. It is closed after the final close update.
func (c *Conn) Events() <-chan transport.Event {
	return c.events
}

// SendText sends a text message.
func (c *Conn) SendText(ctx context.Context, address, body string) error {
	_, err := c.request(ctx, Frame{Type: FrameSendText, To: address, Text: body})
	return err
}

// SendDocument sends a document message.
func (c *Conn) SendDocument(ctx context.Context, address string, doc transport.Document) error {
	_, err := c.request(ctx, Frame{Type: FrameSendDocument, To: address, Document: &doc})
	return err
}

// CheckExists asks whether address is a registered account. The returned
// address is the canonical form reported by the network.
func (c *Conn) CheckExists(ctx context.Context, address string) (bool, string, error) {
	resp, err := c.request(ctx, Frame{Type: FrameCheckExists, To: address})
	if err != nil {
		return false, "", err
	}
	canonical := resp.Address
	if canonical == "" {
		canonical = address
	}
	return resp.Exists, canonical, nil
}

// Close ends the session. The event stream drains and closes afterwards.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) request(ctx context.Context, frame Frame) (Frame, error) {
	select {
	case <-c.closed:
		return Frame{}, ErrConnectionClosed
	default:
	}

	frame.ID = uuid.NewString()
	reply := make(chan Frame, 1)

	c.pendingMu.Lock()
	c.pending[frame.ID] = reply
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, frame.ID)
		c.pendingMu.Unlock()
	}()

	if err := c.write(frame); err != nil {
		return Frame{}, fmt.Errorf("failed to write %s: %w", frame.Type, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-reply:
		if !ok {
			return Frame{}, ErrConnectionClosed
		}
		if !resp.OK {
			return resp, fmt.Errorf("%w: %s: %s", ErrRequestFailed, frame.Type, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-c.closed:
		return Frame{}, ErrConnectionClosed
	case <-timer.C:
		return Frame{}, fmt.Errorf("%s timed out after %s", frame.Type, c.timeout)
	}
}

func (c *Conn) write(frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(frame)
}

func (c *Conn) readLoop() {
	defer close(c.events)
	defer c.failPending()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.emitClose(err)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("wsbridge_frame_invalid", "error", err)
			continue
		}

		switch frame.Type {
		case FrameEvent:
			if frame.Event == nil {
				continue
			}
			select {
			case c.events <- *frame.Event:
			case <-c.closed:
				return
			}
		case FrameResponse:
			c.deliver(frame)
		default:
			c.logger.Debug("wsbridge_frame_ignored", "type", frame.Type)
		}
	}
}

func (c *Conn) deliver(frame Frame) {
	c.pendingMu.Lock()
	reply, ok := c.pending[frame.ID]
	c.pendingMu.Unlock()
	if !ok {
		c.logger.Debug("wsbridge_response_unmatched", "id", frame.ID)
		return
	}
	select {
	case reply <- frame:
	default:
	}
}

func (c *Conn) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, reply := range c.pending {
		close(reply)
		delete(c.pending, id)
	}
}

// emitClose turns a read failure into a close update, unless Close was called.
func (c *Conn) emitClose(err error) {
	select {
	case <-c.closed:
		return
	default:
	}

	update := transport.ConnectionUpdate{Phase: transport.PhaseClose, CloseReason: err.Error()}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		update.CloseStatusCode = closeErr.Code
		if closeErr.Code == CloseLoggedOut {
			update.CloseStatusCode = transport.StatusLoggedOut
		}
		if closeErr.Text != "" {
			update.CloseReason = closeErr.Text
		}
	}

	select {
	case c.events <- transport.Event{Type: transport.EventConnectionUpdate, Connection: &update}:
	case <-c.closed:
	}
}
