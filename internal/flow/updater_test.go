package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/subgate/internal/transport"
)

func TestUpdateInPlace(t *testing.T) {
	ft := &fakeTransport{}
	u := NewUpdater(ft)
	ref := transport.MessageRef{ChatID: testChat, MessageID: 10}

	got, err := u.UpdateOrResend(context.Background(), ref, transport.Message{Text: "updated"})
	if err != nil {
		t.Fatalf("UpdateOrResend: %v", err)
	}
	if got != ref {
		t.Fatalf("ref = %+v, expected the original %+v", got, ref)
	}
	if len(ft.edits) != 1 || len(ft.sent) != 0 {
		t.Fatalf("edits=%d sent=%d, expected edit only", len(ft.edits), len(ft.sent))
	}
}

func TestRejectedEditFallsBackToSend(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"unchanged", &transport.EditRejectedError{Reason: transport.RejectUnchanged, Err: errors.New("same content")}},
		{"rejected", &transport.EditRejectedError{Reason: transport.RejectOther, Err: errors.New("message to edit not found")}},
		{"transport", errors.New("connection reset")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ft := &fakeTransport{editErr: tc.err}
			u := NewUpdater(ft)
			ref := transport.MessageRef{ChatID: testChat, MessageID: 10}

			got, err := u.UpdateOrResend(context.Background(), ref, transport.Message{Text: "updated"})
			if err != nil {
				t.Fatalf("UpdateOrResend: %v", err)
			}
			if len(ft.sent) != 1 {
				t.Fatalf("sent = %d, expected the fallback send", len(ft.sent))
			}
			if got == ref {
				t.Fatal("expected the ref of the freshly sent message")
			}
			if got.ChatID != testChat {
				t.Fatalf("fallback chat = %d", got.ChatID)
			}
		})
	}
}

func TestFallbackSendFailureSurfaces(t *testing.T) {
	ft := &fakeTransport{
		editErr:    errors.New("edit refused"),
		failSendTo: map[int64]error{testChat: errors.New("blocked")},
	}
	u := NewUpdater(ft)
	ref := transport.MessageRef{ChatID: testChat, MessageID: 10}

	if _, err := u.UpdateOrResend(context.Background(), ref, transport.Message{Text: "updated"}); err == nil {
		t.Fatal("expected an error when both edit and resend fail")
	}
}
