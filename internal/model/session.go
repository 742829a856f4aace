package model

import "time"

// ConnectionState is the lifecycle state of the messaging session.
type ConnectionState int

// Connection states. Closed is the initial state and is reachable from any other.
const (
	StateClosed ConnectionState = iota
	StateConnecting
	StateWaitingForPairing
	StateOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateWaitingForPairing:
		return "waiting_for_pairing"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// PublishedStatus is the externally visible status label polled by the UI.
type PublishedStatus string

// Published status values.
const (
	StatusWaitingQR    PublishedStatus = "waiting_qr"
	StatusConnecting   PublishedStatus = "connecting"
	StatusConnected    PublishedStatus = "connected"
	StatusDisconnected PublishedStatus = "disconnected"
)

// StatusRecord is written on every connection state change.
type StatusRecord struct {
	UpdatedAt      time.Time       `json:"updatedAt"`
	Status         PublishedStatus `json:"status"`
	PairingPayload string          `json:"pairingPayload,omitempty"`
}
