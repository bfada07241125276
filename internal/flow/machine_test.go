package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/subgate/internal/gate"
	"github.com/m3rciful/subgate/internal/relay"
	"github.com/m3rciful/subgate/internal/sessions"
	"github.com/m3rciful/subgate/internal/transport"
)

const (
	testUser     int64 = 100
	testChat     int64 = 100
	operatorChat int64 = 900
)

type sentMessage struct {
	chatID int64
	msg    transport.Message
}

// fakeTransport implements transport.Sender and transport.Membership and
// records every outbound call.
type fakeTransport struct {
	role    string
	roleErr error
	checks  int

	nextID     int
	sent       []sentMessage
	failSendTo map[int64]error

	editErr   error
	edits     []transport.MessageRef
	editBody  []transport.Message
	deleteErr error
	deleted   []transport.MessageRef
	cardErr   error
	cards     []transport.Contact
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, msg transport.Message) (transport.MessageRef, error) {
	if err := f.failSendTo[chatID]; err != nil {
		return transport.MessageRef{}, err
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, msg: msg})
	return transport.MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, ref transport.MessageRef, msg transport.Message) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, ref)
	f.editBody = append(f.editBody, msg)
	return nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, ref transport.MessageRef) error {
	f.deleted = append(f.deleted, ref)
	return f.deleteErr
}

func (f *fakeTransport) SendContactCard(_ context.Context, _ int64, c transport.Contact) error {
	if f.cardErr != nil {
		return f.cardErr
	}
	f.cards = append(f.cards, c)
	return nil
}

func (f *fakeTransport) GetMembership(_ context.Context, _ string, _ int64) (string, error) {
	f.checks++
	return f.role, f.roleErr
}

func (f *fakeTransport) lastTo(t *testing.T, chatID int64) transport.Message {
	t.Helper()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].chatID == chatID {
			return f.sent[i].msg
		}
	}
	t.Fatalf("no message sent to chat %d", chatID)
	return transport.Message{}
}

type recordingJournal struct {
	outcomes []string
	err      error
}

func (j *recordingJournal) Record(_ context.Context, _ transport.Contact, outcome string) error {
	j.outcomes = append(j.outcomes, outcome)
	return j.err
}

func newTestMachine(ft *fakeTransport, journal Journal) (*Machine, sessions.Store) {
	store := sessions.NewMemoryStore()
	checker := gate.NewChecker(ft, "@gate_channel", time.Second)
	r := relay.New(ft, operatorChat, time.UTC)
	msgs := Messages{ChannelName: "@gate_channel", ChannelLink: "https://t.me/gate_channel"}
	return NewMachine(ft, store, checker, r, msgs, journal), store
}

func testEvent() Event {
	return Event{UserID: testUser, ChatID: testChat, FirstName: "Иван", Username: "ivan"}
}

func TestStartSendsWelcomeAndAdvances(t *testing.T) {
	ft := &fakeTransport{}
	m, store := newTestMachine(ft, nil)

	if err := m.OnStartCommand(context.Background(), testEvent()); err != nil {
		t.Fatalf("OnStartCommand: %v", err)
	}

	msg := ft.lastTo(t, testChat)
	if !strings.Contains(msg.Text, "Приятно познакомиться, Иван") {
		t.Fatalf("welcome text = %q", msg.Text)
	}
	if len(msg.Inline) != 1 || msg.Inline[0][0].Callback != CallbackCheckSubscription {
		t.Fatalf("welcome must carry the check button, got %+v", msg.Inline)
	}
	if got := store.Get(testUser).Stage; got != sessions.StageAwaitingCheck {
		t.Fatalf("stage = %s, expected %s", got, sessions.StageAwaitingCheck)
	}
}

func TestStartSendFailureLeavesStageUntouched(t *testing.T) {
	ft := &fakeTransport{failSendTo: map[int64]error{testChat: errors.New("blocked")}}
	m, store := newTestMachine(ft, nil)

	if err := m.OnStartCommand(context.Background(), testEvent()); err == nil {
		t.Fatal("expected an error when the welcome cannot be sent")
	}
	if got := store.Get(testUser).Stage; got != sessions.StageStart {
		t.Fatalf("stage = %s, expected %s", got, sessions.StageStart)
	}
}

func TestNotMemberRetriesCountUp(t *testing.T) {
	ft := &fakeTransport{role: "left"}
	m, store := newTestMachine(ft, nil)
	ctx := context.Background()

	if err := m.OnStartCommand(ctx, testEvent()); err != nil {
		t.Fatalf("OnStartCommand: %v", err)
	}
	ev := testEvent()
	ev.Message = &transport.MessageRef{ChatID: testChat, MessageID: 1}

	if err := m.OnSubscriptionCheck(ctx, ev); err != nil {
		t.Fatalf("first check: %v", err)
	}
	if err := m.OnSubscriptionCheck(ctx, ev); err != nil {
		t.Fatalf("second check: %v", err)
	}

	if len(ft.editBody) != 2 {
		t.Fatalf("expected 2 in-place edits, got %d", len(ft.editBody))
	}
	if !strings.Contains(ft.editBody[0].Text, "(Попытка #1)") {
		t.Fatalf("first retry text = %q", ft.editBody[0].Text)
	}
	if !strings.Contains(ft.editBody[1].Text, "(Попытка #2)") {
		t.Fatalf("second retry text = %q", ft.editBody[1].Text)
	}
	sess := store.Get(testUser)
	if sess.RetryCount != 2 || sess.Stage != sessions.StageAwaitingCheck {
		t.Fatalf("session = %+v", sess)
	}
}

func TestMemberGetsContactRequestAndPromptDeleted(t *testing.T) {
	ft := &fakeTransport{role: "member", deleteErr: errors.New("too old")}
	m, store := newTestMachine(ft, nil)
	ctx := context.Background()

	store.SetStage(testUser, sessions.StageAwaitingCheck)
	store.IncrementRetry(testUser)

	ev := testEvent()
	ev.Message = &transport.MessageRef{ChatID: testChat, MessageID: 5}

	if err := m.OnSubscriptionCheck(ctx, ev); err != nil {
		t.Fatalf("OnSubscriptionCheck: %v", err)
	}

	msg := ft.lastTo(t, testChat)
	if msg.RequestContact == "" {
		t.Fatalf("expected a contact-request keyboard, got %+v", msg)
	}
	sess := store.Get(testUser)
	if sess.Stage != sessions.StageAwaitingContact {
		t.Fatalf("stage = %s, expected %s", sess.Stage, sessions.StageAwaitingContact)
	}
	if sess.RetryCount != 0 {
		t.Fatalf("retry count = %d, expected reset to 0", sess.RetryCount)
	}
	// The delete failed, the flow must shrug it off but still have tried.
	if len(ft.deleted) != 1 || ft.deleted[0].MessageID != 5 {
		t.Fatalf("deleted = %+v", ft.deleted)
	}
}

func TestGateUnavailableKeepsRetryCounter(t *testing.T) {
	ft := &fakeTransport{roleErr: errors.New("chat not found")}
	m, store := newTestMachine(ft, nil)
	ctx := context.Background()

	store.SetStage(testUser, sessions.StageAwaitingCheck)
	store.IncrementRetry(testUser)

	ev := testEvent()
	ev.Message = &transport.MessageRef{ChatID: testChat, MessageID: 3}

	if err := m.OnSubscriptionCheck(ctx, ev); err != nil {
		t.Fatalf("OnSubscriptionCheck: %v", err)
	}

	if len(ft.editBody) != 1 || !strings.Contains(ft.editBody[0].Text, "Ошибка подключения к каналу") {
		t.Fatalf("edits = %+v", ft.editBody)
	}
	if strings.Contains(ft.editBody[0].Text, "не подписались") {
		t.Fatal("a transport failure must not blame the user")
	}
	if got := store.Get(testUser).RetryCount; got != 1 {
		t.Fatalf("retry count = %d, expected unchanged 1", got)
	}
}

func TestCheckFromStartStageReentersGate(t *testing.T) {
	// Stale button after a restart: the session is back at start but the old
	// prompt is still on the user's screen.
	ft := &fakeTransport{role: "member"}
	m, store := newTestMachine(ft, nil)

	ev := testEvent()
	ev.Message = &transport.MessageRef{ChatID: testChat, MessageID: 9}

	if err := m.OnSubscriptionCheck(context.Background(), ev); err != nil {
		t.Fatalf("OnSubscriptionCheck: %v", err)
	}
	if ft.checks != 1 {
		t.Fatalf("membership checks = %d, expected 1", ft.checks)
	}
	if got := store.Get(testUser).Stage; got != sessions.StageAwaitingContact {
		t.Fatalf("stage = %s", got)
	}
}

func TestDuplicateCheckPressSkipsGate(t *testing.T) {
	ft := &fakeTransport{role: "member"}
	m, store := newTestMachine(ft, nil)

	for _, stage := range []sessions.Stage{sessions.StageAwaitingContact, sessions.StageCompleted} {
		store.SetStage(testUser, stage)
		if err := m.OnSubscriptionCheck(context.Background(), testEvent()); err != nil {
			t.Fatalf("stage %s: %v", stage, err)
		}
	}
	if ft.checks != 0 {
		t.Fatalf("membership checks = %d, expected 0", ft.checks)
	}
	if len(ft.sent) != 0 {
		t.Fatalf("sent = %+v, expected silence", ft.sent)
	}
}

func TestContactRelayedAndThanked(t *testing.T) {
	ft := &fakeTransport{}
	journal := &recordingJournal{}
	m, store := newTestMachine(ft, journal)
	ctx := context.Background()

	store.SetStage(testUser, sessions.StageAwaitingContact)
	contact := transport.Contact{
		FirstName:   "Иван",
		PhoneNumber: "+79001234567",
		UserID:      testUser,
		Username:    "ivan",
		SubmittedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := m.OnContactSubmitted(ctx, testEvent(), contact); err != nil {
		t.Fatalf("OnContactSubmitted: %v", err)
	}

	if len(ft.cards) != 1 || ft.cards[0].PhoneNumber != "+79001234567" {
		t.Fatalf("cards = %+v", ft.cards)
	}
	summary := ft.lastTo(t, operatorChat)
	if !strings.Contains(summary.Text, "Новый контакт!") || !strings.Contains(summary.Text, "@ivan") {
		t.Fatalf("summary = %q", summary.Text)
	}
	ack := ft.lastTo(t, testChat)
	if !strings.Contains(ack.Text, "Отлично") || !ack.ClearKeyboard {
		t.Fatalf("ack = %+v", ack)
	}
	if got := store.Get(testUser).Stage; got != sessions.StageCompleted {
		t.Fatalf("stage = %s", got)
	}
	if len(journal.outcomes) != 1 || journal.outcomes[0] != "delivered" {
		t.Fatalf("journal = %+v", journal.outcomes)
	}
}

func TestContactCardFailureDegradesToText(t *testing.T) {
	ft := &fakeTransport{cardErr: errors.New("card rejected")}
	m, store := newTestMachine(ft, nil)
	ctx := context.Background()

	store.SetStage(testUser, sessions.StageAwaitingContact)

	if err := m.OnContactSubmitted(ctx, testEvent(), transport.Contact{FirstName: "Иван", UserID: testUser}); err != nil {
		t.Fatalf("OnContactSubmitted: %v", err)
	}

	summary := ft.lastTo(t, operatorChat)
	if !strings.Contains(summary.Text, "(только текст)") {
		t.Fatalf("degraded summary = %q", summary.Text)
	}
	// Degraded delivery still succeeded, so the user sees the thank-you.
	ack := ft.lastTo(t, testChat)
	if !strings.Contains(ack.Text, "Отлично") {
		t.Fatalf("ack = %q", ack.Text)
	}
	if got := store.Get(testUser).Stage; got != sessions.StageCompleted {
		t.Fatalf("stage = %s", got)
	}
}

func TestContactRelayFailureStillCompletes(t *testing.T) {
	ft := &fakeTransport{
		cardErr:    errors.New("card rejected"),
		failSendTo: map[int64]error{operatorChat: errors.New("operator unreachable")},
	}
	journal := &recordingJournal{}
	m, store := newTestMachine(ft, journal)
	ctx := context.Background()

	store.SetStage(testUser, sessions.StageAwaitingContact)

	if err := m.OnContactSubmitted(ctx, testEvent(), transport.Contact{UserID: testUser}); err != nil {
		t.Fatalf("OnContactSubmitted: %v", err)
	}

	ack := ft.lastTo(t, testChat)
	if !strings.Contains(ack.Text, "Ошибка отправки данных владельцу") {
		t.Fatalf("ack = %q, expected the distinct failure text", ack.Text)
	}
	if strings.Contains(ack.Text, "Отлично") {
		t.Fatal("relay failure must not look like success")
	}
	if got := store.Get(testUser).Stage; got != sessions.StageCompleted {
		t.Fatalf("stage = %s, the session completes regardless of relay outcome", got)
	}
	if len(journal.outcomes) != 1 || journal.outcomes[0] != "failed" {
		t.Fatalf("journal = %+v", journal.outcomes)
	}
}

func TestContactOutOfTurnHintsStart(t *testing.T) {
	ft := &fakeTransport{}
	m, store := newTestMachine(ft, nil)
	ctx := context.Background()

	for _, stage := range []sessions.Stage{sessions.StageStart, sessions.StageAwaitingCheck, sessions.StageCompleted} {
		ft.sent = nil
		ft.cards = nil
		store.SetStage(testUser, stage)

		if err := m.OnContactSubmitted(ctx, testEvent(), transport.Contact{UserID: testUser}); err != nil {
			t.Fatalf("stage %s: %v", stage, err)
		}
		if len(ft.cards) != 0 {
			t.Fatalf("stage %s: contact must not be relayed out of turn", stage)
		}
		hint := ft.lastTo(t, testChat)
		if !strings.Contains(hint.Text, "/start") {
			t.Fatalf("stage %s: hint = %q", stage, hint.Text)
		}
		if got := store.Get(testUser).Stage; got != stage {
			t.Fatalf("stage changed from %s to %s", stage, got)
		}
	}
}

func TestJournalErrorIsNotFatal(t *testing.T) {
	ft := &fakeTransport{}
	journal := &recordingJournal{err: errors.New("db down")}
	m, store := newTestMachine(ft, journal)

	store.SetStage(testUser, sessions.StageAwaitingContact)
	if err := m.OnContactSubmitted(context.Background(), testEvent(), transport.Contact{UserID: testUser}); err != nil {
		t.Fatalf("journal failure must not surface: %v", err)
	}
	ack := ft.lastTo(t, testChat)
	if !strings.Contains(ack.Text, "Отлично") {
		t.Fatalf("ack = %q", ack.Text)
	}
}
