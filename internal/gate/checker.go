package gate

import (
	"context"
	"time"

	"log/slog"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/internal/transport"
)

// Checker queries channel membership through the transport and classifies the
// answer. Any transport failure (channel not found, missing bot permissions,
// network trouble) yields StatusUnknown.
type Checker struct {
	membership transport.Membership
	channel    string
	timeout    time.Duration
}

// NewChecker builds a Checker for the configured channel. A non-positive
// timeout disables the per-check deadline.
func NewChecker(m transport.Membership, channel string, timeout time.Duration) *Checker {
	return &Checker{membership: m, channel: channel, timeout: timeout}
}

// Check resolves the membership status of userID in the gated channel.
func (c *Checker) Check(ctx context.Context, userID int64) Status {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	role, err := c.membership.GetMembership(ctx, c.channel, userID)
	if err != nil {
		logger.Warn(ctx, "gate", "membership.check",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("channel", c.channel),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return StatusUnknown
	}

	status := ClassifyRole(role)
	logger.Debug(ctx, "gate", "membership.check",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("role", role),
		slog.String("result", status.String()),
	)
	return status
}
