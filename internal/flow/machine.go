// Package flow drives the gate conversation: subscription verification with
// retry counting, contact capture, and hand-off to the operator.
package flow

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/internal/gate"
	"github.com/m3rciful/subgate/internal/relay"
	"github.com/m3rciful/subgate/internal/sessions"
	"github.com/m3rciful/subgate/internal/transport"
)

// Event identifies the inbound update being handled.
type Event struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Username  string
	// Message references the bot message whose control was activated, when
	// the event came from a button press.
	Message *transport.MessageRef
}

// Journal records relayed contacts for operator bookkeeping. Implementations
// must tolerate being skipped: journaling is never user-visible.
type Journal interface {
	Record(ctx context.Context, contact transport.Contact, outcome string) error
}

// Machine is the per-user conversation state machine. It owns all stage
// transitions; the session store is mutated nowhere else.
type Machine struct {
	sender   transport.Sender
	store    sessions.Store
	gate     *gate.Checker
	relay    *relay.Relay
	updater  Updater
	messages Messages
	journal  Journal
}

// NewMachine wires the conversation flow. journal may be nil.
func NewMachine(sender transport.Sender, store sessions.Store, checker *gate.Checker, r *relay.Relay, messages Messages, journal Journal) *Machine {
	return &Machine{
		sender:   sender,
		store:    store,
		gate:     checker,
		relay:    r,
		updater:  NewUpdater(sender),
		messages: messages,
		journal:  journal,
	}
}

// Messages exposes the flow's text renderer, used by dispatcher fallbacks.
func (m *Machine) Messages() Messages {
	return m.messages
}

// Stage reports the user's current conversation stage.
func (m *Machine) Stage(userID int64) sessions.Stage {
	return m.store.Get(userID).Stage
}

// OnStartCommand handles /start: it sends the welcome prompt and moves the
// session to the subscription-check stage. A failed send leaves the stage
// untouched so a repeated /start starts clean.
func (m *Machine) OnStartCommand(ctx context.Context, ev Event) error {
	if _, err := m.sender.SendMessage(ctx, ev.ChatID, m.messages.Welcome(ev.FirstName)); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}
	m.store.SetStage(ev.UserID, sessions.StageAwaitingCheck)
	logger.Info(ctx, "flow", "conversation.started",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
	)
	return nil
}

// OnSubscriptionCheck handles the check-subscription button. The membership
// gate is consulted only while the session awaits the check (or is still at
// start, which happens with stale buttons after a restart); duplicate presses
// after confirmation are answered without re-evaluating membership.
func (m *Machine) OnSubscriptionCheck(ctx context.Context, ev Event) error {
	sess := m.store.Get(ev.UserID)
	switch sess.Stage {
	case sessions.StageAwaitingContact, sessions.StageCompleted:
		logger.Debug(ctx, "flow", "check.ignored",
			slog.Int64("user_id", ev.UserID),
			slog.String("stage", string(sess.Stage)),
		)
		return nil
	}

	switch status := m.gate.Check(ctx, ev.UserID); status {
	case gate.StatusMember:
		return m.onMember(ctx, ev)
	case gate.StatusNotMember:
		attempt := m.store.IncrementRetry(ev.UserID)
		m.store.SetStage(ev.UserID, sessions.StageAwaitingCheck)
		logger.Info(ctx, "flow", "check.not_member",
			slog.Int64("user_id", ev.UserID),
			slog.Int("retry", attempt),
		)
		return m.refreshPrompt(ctx, ev, m.messages.NotSubscribed(ev.FirstName, attempt))
	default:
		// Transport failure: tell the truth instead of blaming the user,
		// and leave the retry counter alone.
		m.store.SetStage(ev.UserID, sessions.StageAwaitingCheck)
		logger.Warn(ctx, "flow", "check.unavailable",
			slog.Int64("user_id", ev.UserID),
		)
		return m.refreshPrompt(ctx, ev, m.messages.GateUnavailable(ev.FirstName))
	}
}

func (m *Machine) onMember(ctx context.Context, ev Event) error {
	m.store.ResetRetry(ev.UserID)
	if _, err := m.sender.SendMessage(ctx, ev.ChatID, m.messages.ContactRequest(ev.FirstName)); err != nil {
		return fmt.Errorf("send contact request: %w", err)
	}
	m.store.SetStage(ev.UserID, sessions.StageAwaitingContact)
	logger.Info(ctx, "flow", "check.member",
		slog.String("status", "ok"),
		slog.Int64("user_id", ev.UserID),
	)

	// The old prompt with the check button is obsolete now.
	if ev.Message != nil {
		if err := m.sender.DeleteMessage(ctx, *ev.Message); err != nil {
			logger.Warn(ctx, "flow", "prompt.delete",
				slog.Int("message_id", ev.Message.MessageID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}
	return nil
}

func (m *Machine) refreshPrompt(ctx context.Context, ev Event, msg transport.Message) error {
	if ev.Message == nil {
		if _, err := m.sender.SendMessage(ctx, ev.ChatID, msg); err != nil {
			return fmt.Errorf("send prompt: %w", err)
		}
		return nil
	}
	if _, err := m.updater.UpdateOrResend(ctx, *ev.Message, msg); err != nil {
		return fmt.Errorf("refresh prompt: %w", err)
	}
	return nil
}

// OnContactSubmitted handles a shared contact: it relays the contact to the
// operator and completes the session. The session advances to Completed even
// on relay failure (re-submission could duplicate an already-delivered card);
// the user-facing acknowledgment is what differs.
func (m *Machine) OnContactSubmitted(ctx context.Context, ev Event, contact transport.Contact) error {
	sess := m.store.Get(ev.UserID)
	if sess.Stage != sessions.StageAwaitingContact {
		logger.Debug(ctx, "flow", "contact.out_of_turn",
			slog.Int64("user_id", ev.UserID),
			slog.String("stage", string(sess.Stage)),
		)
		if _, err := m.sender.SendMessage(ctx, ev.ChatID, m.messages.StartHint()); err != nil {
			return fmt.Errorf("send start hint: %w", err)
		}
		return nil
	}

	outcome := m.relay.Relay(ctx, contact)
	m.store.ResetRetry(ev.UserID)
	m.store.SetStage(ev.UserID, sessions.StageCompleted)

	if m.journal != nil {
		if err := m.journal.Record(ctx, contact, outcome.String()); err != nil {
			logger.Warn(ctx, "journal", "record",
				slog.Int64("user_id", ev.UserID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}

	logger.Info(ctx, "flow", "contact.handled",
		slog.Int64("user_id", ev.UserID),
		slog.String("result", outcome.String()),
	)

	ack := m.messages.ThankYou(contact.FirstName)
	if outcome == relay.Failed {
		ack = m.messages.RelayFailed()
	}
	if _, err := m.sender.SendMessage(ctx, ev.ChatID, ack); err != nil {
		return fmt.Errorf("send acknowledgment: %w", err)
	}
	return nil
}
