package tui

import (
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
)

type statusMsg struct {
	err    error
	at     time.Time
	record model.StatusRecord
}

// tickMsg schedules the next poll. Ticks from superseded polls carry an old
// seq and are dropped.
type tickMsg struct {
	seq int
}
