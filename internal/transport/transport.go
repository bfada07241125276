// Package transport abstracts the Telegram delivery surface consumed by the
// gate conversation: message send/edit/delete, membership lookup, and contact
// card delivery. The flow depends only on these interfaces; the telebot
// adapter lives in telebot.go.
package transport

import (
	"context"
	"time"
)

// Mode selects how message text is rendered by the transport.
type Mode string

const (
	// ModeHTML renders the text with Telegram HTML entities.
	ModeHTML Mode = "html"
	// ModePlain sends the text without any parse mode.
	ModePlain Mode = "plain"
)

// Button is a single interactive control attached to a message.
// Exactly one of Callback and URL is set.
type Button struct {
	Text     string
	Callback string
	URL      string
}

// Message is an outbound payload produced by the conversation flow.
type Message struct {
	Text string
	Mode Mode
	// Inline holds rows of inline buttons.
	Inline [][]Button
	// RequestContact, when non-empty, attaches a one-time reply keyboard with
	// a single contact-sharing button carrying this label.
	RequestContact string
	// ClearKeyboard removes any reply keyboard from the user's screen.
	ClearKeyboard bool
}

// MessageRef identifies a message previously delivered to a chat.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Contact is a captured contact payload relayed to the operator.
type Contact struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	UserID      int64
	Username    string
	SubmittedAt time.Time
}

// Sender covers the outbound operations used by the flow and the relay.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, msg Message) (MessageRef, error)
	// EditMessage replaces the content of ref in place. A refused edit is
	// reported as *EditRejectedError.
	EditMessage(ctx context.Context, ref MessageRef, msg Message) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendContactCard(ctx context.Context, chatID int64, contact Contact) error
}

// Membership resolves the raw channel-membership role of a user.
// The returned role uses the transport's own vocabulary; classification into
// the closed status enum happens in the gate package.
type Membership interface {
	GetMembership(ctx context.Context, channel string, userID int64) (string, error)
}
