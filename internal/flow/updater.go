package flow

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/internal/transport"
)

// Updater mutates an already-delivered message in place, falling back to a
// fresh send when the transport refuses the edit for any reason. The user
// always ends up with the latest content exactly once: edited when possible,
// resent otherwise.
type Updater struct {
	sender transport.Sender
}

// NewUpdater builds an Updater on top of the given sender.
func NewUpdater(sender transport.Sender) Updater {
	return Updater{sender: sender}
}

// UpdateOrResend edits ref to carry msg, or sends msg as a new message when
// the edit fails. Edit failures never escape; the returned error is non-nil
// only when the fallback send itself failed. The returned ref points at the
// message now carrying the content.
func (u Updater) UpdateOrResend(ctx context.Context, ref transport.MessageRef, msg transport.Message) (transport.MessageRef, error) {
	err := u.sender.EditMessage(ctx, ref, msg)
	if err == nil {
		return ref, nil
	}

	var rejected *transport.EditRejectedError
	if errors.As(err, &rejected) {
		logger.Debug(ctx, "flow", "edit.rejected",
			slog.String("reason", string(rejected.Reason)),
			slog.Int("message_id", ref.MessageID),
		)
	} else {
		logger.Warn(ctx, "flow", "edit.failed",
			slog.Int("message_id", ref.MessageID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}

	sent, sendErr := u.sender.SendMessage(ctx, ref.ChatID, msg)
	if sendErr != nil {
		return ref, fmt.Errorf("resend after failed edit: %w", sendErr)
	}
	return sent, nil
}
