// Package sender delivers outbound messages over the live session.
package sender

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-spice-must-chat/internal/address"
	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
)

// Sender probes address candidates before sending text.
type Sender struct {
	messenger  service.Messenger
	normalizer address.Normalizer
	logger     *slog.Logger
}

var _ service.Replier = (*Sender)(nil)

// New returns a Sender over messenger.
func New(messenger service.Messenger, normalizer address.Normalizer, logger *slog.Logger) *Sender {
	return &Sender{
		messenger:  messenger,
		normalizer: normalizer,
		logger:     common.LoggerOrDefault(logger).With("component", "sender"),
	}
}

// SendText sends body to the first candidate address confirmed to exist. When
// no candidate is confirmed it still sends to the raw address. It reports
// false if the session is not open or the final send failed.
func (s *Sender) SendText(ctx context.Context, rawAddress, body string) bool {
	if !s.messenger.IsConnected() {
		s.logger.Warn("send_refused_not_connected", "to", rawAddress)
		return false
	}

	for _, candidate := range s.normalizer.Candidates(userPart(rawAddress)) {
		exists, canonical, err := s.messenger.CheckExists(ctx, candidate)
		if err != nil {
			s.logger.Debug("send_probe_failed", "candidate", candidate, "error", err)
			continue
		}
		if !exists {
			continue
		}
		if canonical == "" {
			canonical = candidate
		}
		if err := s.messenger.SendText(ctx, canonical, body); err != nil {
			s.logger.Warn("send_candidate_failed", "candidate", canonical, "error", err)
			continue
		}
		return true
	}

	fallback := s.fallbackAddress(rawAddress)
	if fallback == "" {
		s.logger.Warn("send_no_address", "to", rawAddress)
		return false
	}
	s.logger.Info("send_unconfirmed_fallback", "to", fallback)
	if err := s.messenger.SendText(ctx, fallback, body); err != nil {
		s.logger.Error("send_failed", "to", fallback, "error", err)
		return false
	}
	return true
}

// SendDocument sends doc to address exactly as given.
func (s *Sender) SendDocument(ctx context.Context, addr string, doc transport.Document) bool {
	if !s.messenger.IsConnected() {
		s.logger.Warn("send_document_refused_not_connected", "to", addr)
		return false
	}
	if err := s.messenger.SendDocument(ctx, addr, doc); err != nil {
		s.logger.Error("send_document_failed", "to", addr, "file_name", doc.FileName, "error", err)
		return false
	}
	return true
}

// fallbackAddress keeps a full address untouched and gives bare digits the
// session domain.
func (s *Sender) fallbackAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "@") {
		return raw
	}
	digits := address.Digits(raw)
	if digits == "" {
		return ""
	}
	return s.normalizer.Address(digits)
}

func userPart(raw string) string {
	if strings.Contains(raw, "@") {
		return address.PhoneFromAddress(raw)
	}
	return raw
}
