// Package relay forwards captured contacts to the operator account.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/core/telegram/format"
	"github.com/m3rciful/subgate/internal/transport"
)

// Outcome reports how contact delivery to the operator ended.
type Outcome int

const (
	// Failed means neither the contact card nor the text summary reached the
	// operator.
	Failed Outcome = iota
	// Delivered means the structured contact card reached the operator.
	Delivered
	// DeliveredTextOnly means the card failed but the text summary got through.
	DeliveredTextOnly
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case DeliveredTextOnly:
		return "delivered_text_only"
	default:
		return "failed"
	}
}

// Relay delivers contacts to a single operator chat. Primary path is a
// structured contact card followed by an HTML summary; if the card fails the
// summary alone is sent with a degraded-delivery prefix.
type Relay struct {
	sender       transport.Sender
	operatorChat int64
	loc          *time.Location
}

// New builds a Relay. loc selects the timezone for the summary timestamp;
// nil falls back to UTC.
func New(sender transport.Sender, operatorChat int64, loc *time.Location) *Relay {
	if loc == nil {
		loc = time.UTC
	}
	return &Relay{sender: sender, operatorChat: operatorChat, loc: loc}
}

// Relay forwards the contact and reports the delivery outcome. It never
// returns an error: every failure is classified into the outcome.
func (r *Relay) Relay(ctx context.Context, c transport.Contact) Outcome {
	summary := r.summary(c)

	if err := r.sender.SendContactCard(ctx, r.operatorChat, c); err != nil {
		logger.Warn(ctx, "relay", "card.send",
			slog.String("status", "fail"),
			slog.Int64("user_id", c.UserID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		degraded := transport.Message{
			Text: "📱 " + format.Bold("Новый контакт (только текст)!") + "\n\n" + summary,
			Mode: transport.ModeHTML,
		}
		if _, err := r.sender.SendMessage(ctx, r.operatorChat, degraded); err != nil {
			logger.Error(ctx, "relay", "fallback.send",
				slog.String("status", "fail"),
				slog.Int64("user_id", c.UserID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return Failed
		}
		return DeliveredTextOnly
	}

	msg := transport.Message{
		Text: "📱 " + format.Bold("Новый контакт!") + "\n\n" + summary,
		Mode: transport.ModeHTML,
	}
	if _, err := r.sender.SendMessage(ctx, r.operatorChat, msg); err != nil {
		// The card is already with the operator; the summary is best effort.
		logger.Warn(ctx, "relay", "summary.send",
			slog.String("status", "fail"),
			slog.Int64("user_id", c.UserID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}

	logger.Info(ctx, "relay", "contact.relayed",
		slog.String("status", "ok"),
		slog.Int64("user_id", c.UserID),
	)
	return Delivered
}

func (r *Relay) summary(c transport.Contact) string {
	lastName := "Не указана"
	if c.LastName != "" {
		lastName = c.LastName
	}
	username := "Не указан"
	if c.Username != "" {
		username = "@" + c.Username
	}

	lines := []string{
		"👤 " + format.Bold("Имя:") + " " + format.EscapeHTML(c.FirstName),
		"👤 " + format.Bold("Фамилия:") + " " + format.EscapeHTML(lastName),
		"📞 " + format.Bold("Телефон:") + " " + format.Code(c.PhoneNumber),
		"🆔 " + format.Bold("User ID:") + " " + format.Code(fmt.Sprintf("%d", c.UserID)),
		"🔗 " + format.Bold("Username:") + " " + format.EscapeHTML(username),
		"📅 " + format.Bold("Дата:") + " " + c.SubmittedAt.In(r.loc).Format("02.01.2006 15:04"),
	}
	return strings.Join(lines, "\n")
}
