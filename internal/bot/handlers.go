package bot

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/core/telegram/commands"
	tghelpers "github.com/m3rciful/subgate/core/telegram/helpers"
	coretelegram "github.com/m3rciful/subgate/core/telegram"
	"github.com/m3rciful/subgate/internal/flow"
	"github.com/m3rciful/subgate/internal/sessions"
	"github.com/m3rciful/subgate/internal/transport"
)

func (a *App) registerHandlers(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Начать запись на консультацию",
	})
	reg.RegisterCommand("/status", commands.Command{
		Handler:     a.handleStatus,
		Description: "Состояние сессий",
		AdminOnly:   true,
		Hidden:      true,
	})
	_ = reg.RegisterCallback(flow.CallbackCheckSubscription, a.handleCheckSubscription)
	reg.SetTextFallback(a.handleStrayText)
}

func eventFrom(c tele.Context) flow.Event {
	var ev flow.Event
	if u := c.Sender(); u != nil {
		ev.UserID = u.ID
		ev.FirstName = u.FirstName
		ev.Username = u.Username
	}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if cb := c.Callback(); cb != nil && cb.Message != nil && cb.Message.Chat != nil {
		ref := transport.MessageRef{
			ChatID:    cb.Message.Chat.ID,
			MessageID: cb.Message.ID,
		}
		ev.Message = &ref
	}
	return ev
}

func (a *App) handleStart(c tele.Context) error {
	m := a.machineRef()
	if m == nil {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "start")
	return m.OnStartCommand(ctx, eventFrom(c))
}

func (a *App) handleCheckSubscription(c tele.Context) error {
	m := a.machineRef()
	if m == nil {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "check_sub")
	return m.OnSubscriptionCheck(ctx, eventFrom(c))
}

func (a *App) handleContact(c tele.Context) error {
	m := a.machineRef()
	if m == nil {
		return nil
	}
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		return nil
	}

	contact := transport.Contact{
		FirstName:   msg.Contact.FirstName,
		LastName:    msg.Contact.LastName,
		PhoneNumber: msg.Contact.PhoneNumber,
		SubmittedAt: msg.Time(),
	}
	if u := c.Sender(); u != nil {
		contact.UserID = u.ID
		contact.Username = u.Username
	}

	ctx := tghelpers.WithHandler(c, "contact")
	return m.OnContactSubmitted(ctx, eventFrom(c), contact)
}

// handleAwaitingContactText answers text typed while the bot expects the
// contact button.
func (a *App) handleAwaitingContactText(c tele.Context) error {
	m := a.machineRef()
	if m == nil {
		return nil
	}
	return tghelpers.SendText(c, m.Messages().AwaitingContactReminder().Text)
}

// handleStrayText answers text from users without an active conversation.
func (a *App) handleStrayText(c tele.Context) error {
	m := a.machineRef()
	if m == nil {
		return nil
	}
	return tghelpers.SendText(c, m.Messages().StartHint().Text)
}

func (a *App) handleStatus(c tele.Context) error {
	counts := a.store.Counts()
	var b strings.Builder
	b.WriteString("Сессии по стадиям:\n")
	for _, stage := range []sessions.Stage{
		sessions.StageStart,
		sessions.StageAwaitingCheck,
		sessions.StageAwaitingContact,
		sessions.StageCompleted,
	} {
		fmt.Fprintf(&b, "• %s: %d\n", stage, counts[stage])
	}

	a.mu.RLock()
	rt := a.runtime
	a.mu.RUnlock()
	if rt.Dispatcher != nil {
		fmt.Fprintf(&b, "\nОшибок асинхронной отправки: %d", rt.Dispatcher.ErrorCount())
	}
	return tghelpers.SendText(c, b.String())
}

// onDispatchError receives transport errors that escaped every handler
// fallback. It logs and, for button presses, answers the callback so the
// client spinner stops.
func (a *App) onDispatchError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "dispatch.error",
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	if c != nil && c.Callback() != nil {
		_ = c.Respond(&tele.CallbackResponse{
			Text:      "Произошла ошибка. Попробуйте позже.",
			ShowAlert: true,
		})
	}
}
