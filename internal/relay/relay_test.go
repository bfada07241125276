package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/subgate/internal/transport"
)

const operatorChat int64 = 900

type fakeSender struct {
	cardErr error
	sendErr error

	cards []transport.Contact
	sent  []transport.Message
}

func (f *fakeSender) SendMessage(_ context.Context, _ int64, msg transport.Message) (transport.MessageRef, error) {
	if f.sendErr != nil {
		return transport.MessageRef{}, f.sendErr
	}
	f.sent = append(f.sent, msg)
	return transport.MessageRef{ChatID: operatorChat, MessageID: len(f.sent)}, nil
}

func (f *fakeSender) EditMessage(_ context.Context, _ transport.MessageRef, _ transport.Message) error {
	return errors.New("not used")
}

func (f *fakeSender) DeleteMessage(_ context.Context, _ transport.MessageRef) error {
	return errors.New("not used")
}

func (f *fakeSender) SendContactCard(_ context.Context, _ int64, c transport.Contact) error {
	if f.cardErr != nil {
		return f.cardErr
	}
	f.cards = append(f.cards, c)
	return nil
}

func fullContact() transport.Contact {
	return transport.Contact{
		FirstName:   "Иван",
		LastName:    "Петров",
		PhoneNumber: "+79001234567",
		UserID:      42,
		Username:    "ivan",
		SubmittedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestRelayDelivered(t *testing.T) {
	fs := &fakeSender{}
	r := New(fs, operatorChat, time.UTC)

	if got := r.Relay(context.Background(), fullContact()); got != Delivered {
		t.Fatalf("outcome = %s, expected delivered", got)
	}
	if len(fs.cards) != 1 {
		t.Fatalf("cards = %d", len(fs.cards))
	}
	if len(fs.sent) != 1 {
		t.Fatalf("summaries = %d", len(fs.sent))
	}
	text := fs.sent[0].Text
	for _, want := range []string{
		"Новый контакт!",
		"<b>Имя:</b> Иван",
		"<b>Фамилия:</b> Петров",
		"<code>+79001234567</code>",
		"<code>42</code>",
		"@ivan",
		"01.06.2025 09:30",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
	if fs.sent[0].Mode != transport.ModeHTML {
		t.Fatalf("summary mode = %s", fs.sent[0].Mode)
	}
}

func TestRelaySummaryTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	fs := &fakeSender{}
	r := New(fs, operatorChat, loc)

	r.Relay(context.Background(), fullContact())
	if !strings.Contains(fs.sent[0].Text, "01.06.2025 12:30") {
		t.Fatalf("summary timestamp not in Moscow time:\n%s", fs.sent[0].Text)
	}
}

func TestRelayPlaceholdersForMissingFields(t *testing.T) {
	fs := &fakeSender{}
	r := New(fs, operatorChat, time.UTC)

	c := fullContact()
	c.LastName = ""
	c.Username = ""
	r.Relay(context.Background(), c)

	text := fs.sent[0].Text
	if !strings.Contains(text, "Не указана") || !strings.Contains(text, "Не указан") {
		t.Fatalf("placeholders missing:\n%s", text)
	}
}

func TestRelayCardFailureDegrades(t *testing.T) {
	fs := &fakeSender{cardErr: errors.New("card rejected")}
	r := New(fs, operatorChat, time.UTC)

	if got := r.Relay(context.Background(), fullContact()); got != DeliveredTextOnly {
		t.Fatalf("outcome = %s, expected delivered_text_only", got)
	}
	if !strings.Contains(fs.sent[0].Text, "(только текст)") {
		t.Fatalf("degraded marker missing:\n%s", fs.sent[0].Text)
	}
}

func TestRelayTotalFailure(t *testing.T) {
	fs := &fakeSender{cardErr: errors.New("card rejected"), sendErr: errors.New("unreachable")}
	r := New(fs, operatorChat, time.UTC)

	if got := r.Relay(context.Background(), fullContact()); got != Failed {
		t.Fatalf("outcome = %s, expected failed", got)
	}
}

func TestRelayCardDeliveredSummaryLost(t *testing.T) {
	fs := &fakeSender{sendErr: errors.New("flood wait")}
	r := New(fs, operatorChat, time.UTC)

	if got := r.Relay(context.Background(), fullContact()); got != Delivered {
		t.Fatalf("outcome = %s, the card alone counts as delivered", got)
	}
}

func TestRelayEscapesUserInput(t *testing.T) {
	fs := &fakeSender{}
	r := New(fs, operatorChat, time.UTC)

	c := fullContact()
	c.FirstName = "<script>"
	r.Relay(context.Background(), c)

	text := fs.sent[0].Text
	if strings.Contains(text, "<script>") {
		t.Fatalf("unescaped user input:\n%s", text)
	}
	if !strings.Contains(text, "&lt;script&gt;") {
		t.Fatalf("escaped name missing:\n%s", text)
	}
}
