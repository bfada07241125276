package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeMembership struct {
	role string
	err  error

	gotChannel string
	gotUser    int64
	deadline   bool
}

func (f *fakeMembership) GetMembership(ctx context.Context, channel string, userID int64) (string, error) {
	f.gotChannel = channel
	f.gotUser = userID
	_, f.deadline = ctx.Deadline()
	return f.role, f.err
}

func TestCheckClassifies(t *testing.T) {
	fm := &fakeMembership{role: "administrator"}
	c := NewChecker(fm, "@gate", 2*time.Second)

	if got := c.Check(context.Background(), 42); got != StatusMember {
		t.Fatalf("status = %s, expected member", got)
	}
	if fm.gotChannel != "@gate" || fm.gotUser != 42 {
		t.Fatalf("lookup args = (%q, %d)", fm.gotChannel, fm.gotUser)
	}
	if !fm.deadline {
		t.Fatal("expected a per-check deadline on the context")
	}
}

func TestCheckErrorYieldsUnknown(t *testing.T) {
	fm := &fakeMembership{err: errors.New("chat not found")}
	c := NewChecker(fm, "@gate", time.Second)

	if got := c.Check(context.Background(), 42); got != StatusUnknown {
		t.Fatalf("status = %s, expected unknown", got)
	}
}

func TestCheckZeroTimeoutSkipsDeadline(t *testing.T) {
	fm := &fakeMembership{role: "left"}
	c := NewChecker(fm, "@gate", 0)

	if got := c.Check(context.Background(), 42); got != StatusNotMember {
		t.Fatalf("status = %s, expected not_member", got)
	}
	if fm.deadline {
		t.Fatal("zero timeout must not set a deadline")
	}
}
