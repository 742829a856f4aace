// Package wsbridge implements transport.Transport over a websocket connection
// to a protocol gateway. The gateway speaks the messaging network's wire
// protocol and relays events and commands as JSON frames.
package wsbridge

import (
	"errors"

	"github.com/Veraticus/the-spice-must-chat/internal/transport"
)

// Frame types.
const (
	FrameHello        = "hello"
	FrameEvent        = "event"
	FrameResponse     = "response"
	FrameSendText     = "send_text"
	FrameSendDocument = "send_document"
	FrameCheckExists  = "check_exists"
)

// CloseLoggedOut is the websocket close code a gateway uses to report that the
// session was revoked.
const CloseLoggedOut = 4401

var (
	// ErrRequestFailed is returned when the gateway rejects a command.
	ErrRequestFailed = errors.New("gateway rejected request")
	// ErrConnectionClosed is returned for commands on a closed connection.
	ErrConnectionClosed = errors.New("gateway connection closed")
)

// Frame is the single JSON envelope exchanged with the gateway. Commands carry
// an ID that the matching response echoes back.
type Frame struct {
	Event       *transport.Event       `json:"event,omitempty"`
	Credentials *transport.Credentials `json:"creds,omitempty"`
	Document    *transport.Document    `json:"document,omitempty"`
	Type        string                 `json:"type"`
	ID          string                 `json:"id,omitempty"`
	To          string                 `json:"to,omitempty"`
	Text        string                 `json:"text,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Address     string                 `json:"address,omitempty"`
	OK          bool                   `json:"ok,omitempty"`
	Exists      bool                   `json:"exists,omitempty"`
}
