// Package router turns inbound chat messages into recorded transactions and
// chat replies.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/address"
	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/extract"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
	"github.com/google/uuid"
)

// Outcome says what Handle did with a message.
type Outcome string

// Handle outcomes.
const (
	OutcomeRecorded            Outcome = "recorded"
	OutcomeHelp                Outcome = "help"
	OutcomeDuplicate           Outcome = "duplicate"
	OutcomeIgnored             Outcome = "ignored"
	OutcomeForwarded           Outcome = "forwarded"
	OutcomeTranscriptionFailed Outcome = "transcription_failed"
)

// Result is the outcome of handling one message.
type Result struct {
	Transaction *model.Transaction
	Outcome     Outcome
	Replied     bool
}

const defaultConcurrency = 8

// Config wires a Router. Transcriber, Sink and Forwarder are optional.
type Config struct {
	Store       service.TransactionStore
	Replier     service.Replier
	Transcriber service.Transcriber
	Sink        service.TransactionSink
	Forwarder   *WebhookForwarder
	Extractor   *extract.Extractor
	Now         func() time.Time
	Logger      *slog.Logger
	Language    string
	Concurrency int
}

// Router runs the per-message pipeline.
type Router struct {
	store       service.TransactionStore
	replier     service.Replier
	transcriber service.Transcriber
	sink        service.TransactionSink
	forwarder   *WebhookForwarder
	extractor   *extract.Extractor
	now         func() time.Time
	logger      *slog.Logger
	sem         chan struct{}
	language    string
	inflight    sync.WaitGroup
}

// New validates cfg and returns a Router.
func New(cfg Config) (*Router, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: transaction store", common.ErrMissingConfig)
	}
	if cfg.Replier == nil {
		return nil, fmt.Errorf("%w: replier", common.ErrMissingConfig)
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Language == "" {
		cfg.Language = "pt"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &Router{
		store:       cfg.Store,
		replier:     cfg.Replier,
		transcriber: cfg.Transcriber,
		sink:        cfg.Sink,
		forwarder:   cfg.Forwarder,
		extractor:   cfg.Extractor,
		now:         cfg.Now,
		logger:      common.LoggerOrDefault(cfg.Logger).With("component", "router"),
		sem:         make(chan struct{}, cfg.Concurrency),
		language:    cfg.Language,
	}, nil
}

// FromTransport converts a network message into an InboundMessage.
func FromTransport(m transport.Message) model.InboundMessage {
	msg := model.InboundMessage{
		ReceivedAt:    m.Timestamp,
		SourceAddress: m.RemoteAddress,
		DisplayName:   m.PushName,
		MessageID:     m.ID,
		FromSelf:      m.FromMe,
		Kind:          model.KindUnknown,
	}

	text := m.Conversation
	if text == "" {
		text = m.ExtendedText
	}

	switch {
	case strings.TrimSpace(text) != "":
		msg.Kind = model.KindText
		msg.TextBody = text
	case m.AudioURL != "":
		msg.Kind = model.KindAudio
		msg.MediaRef = m.AudioURL
	case m.ImageURL != "":
		msg.Kind = model.KindImage
		msg.MediaRef = m.ImageURL
		msg.TextBody = m.ImageCaption
	}
	return msg
}

// HandleBatch processes msgs concurrently and returns without waiting. Each
// message's own pipeline is sequential. It matches session.MessageHandler.
func (r *Router) HandleBatch(ctx context.Context, msgs []transport.Message) {
	for _, m := range msgs {
		msg := FromTransport(m)
		r.inflight.Add(1)
		go func() {
			defer r.inflight.Done()

			select {
			case r.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-r.sem }()

			if _, err := r.Handle(ctx, msg); err != nil {
				r.logger.Error("message_handling_failed",
					"message_id", msg.MessageID,
					"from", msg.SourceAddress,
					"error", err)
			}
		}()
	}
}

// Wait blocks until every message started by HandleBatch has finished.
func (r *Router) Wait() {
	r.inflight.Wait()
}

// Handle runs the pipeline for one message. The returned error is set only
// when the finished record could not be persisted.
func (r *Router) Handle(ctx context.Context, msg model.InboundMessage) (Result, error) {
	if skip, reason := shouldIgnore(msg); skip {
		r.logger.Debug("message_ignored", "message_id", msg.MessageID, "reason", reason)
		return Result{Outcome: OutcomeIgnored}, nil
	}

	if msg.MessageID != "" {
		existing, err := r.store.GetTransactionByMessageID(ctx, msg.MessageID)
		switch {
		case err == nil:
			r.logger.Info("message_duplicate", "message_id", msg.MessageID, "transaction_id", existing.ID)
			return Result{Outcome: OutcomeDuplicate, Transaction: existing}, nil
		case !errors.Is(err, common.ErrNotFound):
			return Result{}, fmt.Errorf("failed to check message %s: %w", msg.MessageID, err)
		}
	}

	var text string
	switch msg.Kind {
	case model.KindText:
		text = msg.TextBody

	case model.KindAudio:
		transcript, err := r.transcribe(ctx, msg)
		if err != nil {
			r.logger.Warn("transcription_failed", "message_id", msg.MessageID, "error", err)
			replied := r.replier.SendText(ctx, msg.SourceAddress, transcriptionApology)
			return Result{Outcome: OutcomeTranscriptionFailed, Replied: replied}, nil
		}
		text = transcript

	case model.KindImage:
		return r.forwardImage(ctx, msg), nil

	default:
		r.logger.Debug("message_ignored", "message_id", msg.MessageID, "reason", "unsupported kind")
		return Result{Outcome: OutcomeIgnored}, nil
	}

	now := r.now()
	intent := r.extractor.Extract(text, now)
	if intent == nil {
		replied := r.replier.SendText(ctx, msg.SourceAddress, helpMessage)
		return Result{Outcome: OutcomeHelp, Replied: replied}, nil
	}

	txn := newTransaction(msg, intent, now)
	if err := r.store.SaveTransaction(ctx, &txn); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			return Result{Outcome: OutcomeDuplicate}, nil
		}
		return Result{}, fmt.Errorf("failed to save transaction: %w", err)
	}

	r.logger.Info("transaction_recorded",
		"transaction_id", txn.ID,
		"message_id", txn.MessageID,
		"direction", txn.Direction,
		"amount", txn.Amount.StringFixed(2),
		"category", txn.Category,
		"context", txn.ContextTag)

	if r.sink != nil {
		if err := r.sink.Append(ctx, txn); err != nil {
			r.logger.Warn("transaction_mirror_failed", "transaction_id", txn.ID, "error", err)
		}
	}

	replied := r.replier.SendText(ctx, msg.SourceAddress, confirmationMessage(txn))
	return Result{Outcome: OutcomeRecorded, Transaction: &txn, Replied: replied}, nil
}

func (r *Router) transcribe(ctx context.Context, msg model.InboundMessage) (string, error) {
	if r.transcriber == nil {
		return "", fmt.Errorf("%w: no transcriber configured", common.ErrTranscriptionFailed)
	}
	if msg.MediaRef == "" {
		return "", fmt.Errorf("%w: %w", common.ErrTranscriptionFailed, common.MissingField("audioUrl"))
	}
	return r.transcriber.Transcribe(ctx, msg.MediaRef, r.language)
}

func (r *Router) forwardImage(ctx context.Context, msg model.InboundMessage) Result {
	if r.forwarder == nil || msg.MediaRef == "" {
		r.logger.Debug("image_ignored", "message_id", msg.MessageID)
		return Result{Outcome: OutcomeIgnored}
	}
	if err := r.forwarder.Forward(ctx, msg); err != nil {
		r.logger.Warn("image_forward_failed", "message_id", msg.MessageID, "error", err)
		return Result{Outcome: OutcomeIgnored}
	}
	r.logger.Info("image_forwarded", "message_id", msg.MessageID)
	return Result{Outcome: OutcomeForwarded}
}

func shouldIgnore(msg model.InboundMessage) (bool, string) {
	switch {
	case msg.FromSelf:
		return true, "from self"
	case address.IsGroup(msg.SourceAddress):
		return true, "group"
	case address.IsBroadcast(msg.SourceAddress):
		return true, "broadcast"
	case strings.TrimSpace(msg.SourceAddress) == "":
		return true, "no source"
	}
	return false, ""
}

func newTransaction(msg model.InboundMessage, intent *extract.Intent, now time.Time) model.Transaction {
	occurred := now
	if intent.OccurredOn != nil {
		occurred = *intent.OccurredOn
	}

	category := intent.Category
	if category == "" {
		category = model.DefaultCategory
	}

	txn := model.Transaction{
		ID:          uuid.NewString(),
		MessageID:   msg.MessageID,
		Source:      msg.SourceAddress,
		SenderName:  msg.DisplayName,
		Amount:      intent.Amount,
		Direction:   intent.Direction,
		Description: intent.Description,
		Category:    category,
		ContextTag:  intent.ContextTag,
		OccurredOn:  occurred,
		CreatedAt:   now,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}
