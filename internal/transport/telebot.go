package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/m3rciful/subgate/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Bot adapts a telebot instance to the Sender and Membership interfaces.
type Bot struct {
	bot *tele.Bot
}

// NewBot wraps a running telebot instance.
func NewBot(b *tele.Bot) *Bot {
	return &Bot{bot: b}
}

// editTarget satisfies tele.Editable for a MessageRef.
type editTarget MessageRef

func (e editTarget) MessageSig() (string, int64) {
	return strconv.Itoa(e.MessageID), e.ChatID
}

// channel satisfies tele.Recipient for "@username" or numeric chat identifiers.
type channel string

func (c channel) Recipient() string { return string(c) }

// SendMessage delivers msg to the chat and returns a reference to the sent message.
func (t *Bot) SendMessage(ctx context.Context, chatID int64, msg Message) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	sent, err := t.bot.Send(tele.ChatID(chatID), msg.Text, sendOptions(msg))
	if err != nil {
		return MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	return MessageRef{ChatID: chatID, MessageID: sent.ID}, nil
}

// EditMessage replaces the referenced message content in place. Refused edits
// come back as *EditRejectedError so callers never match on error text.
func (t *Bot) EditMessage(ctx context.Context, ref MessageRef, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Edit(editTarget(ref), msg.Text, sendOptions(msg))
	if err == nil {
		return nil
	}
	if errors.Is(err, tele.ErrSameMessageContent) {
		return &EditRejectedError{Reason: RejectUnchanged, Err: err}
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return &EditRejectedError{Reason: RejectOther, Err: err}
	}
	return fmt.Errorf("edit message: %w", err)
}

// DeleteMessage removes the referenced message.
func (t *Bot) DeleteMessage(ctx context.Context, ref MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.bot.Delete(editTarget(ref)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// SendContactCard delivers a structured contact card to the chat.
func (t *Bot) SendContactCard(ctx context.Context, chatID int64, contact Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	card := &tele.Contact{
		PhoneNumber: contact.PhoneNumber,
		FirstName:   contact.FirstName,
		LastName:    contact.LastName,
	}
	if _, err := t.bot.Send(tele.ChatID(chatID), card); err != nil {
		return fmt.Errorf("send contact card: %w", err)
	}
	return nil
}

// GetMembership returns the raw membership role of userID in the channel.
func (t *Bot) GetMembership(ctx context.Context, ch string, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := t.bot.ChatMemberOf(channel(ch), &tele.User{ID: userID})
	if err != nil {
		return "", fmt.Errorf("chat member of %s: %w", ch, err)
	}
	return string(member.Role), nil
}

func sendOptions(msg Message) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if msg.Mode == ModeHTML {
		opts.ParseMode = tele.ModeHTML
	}
	switch {
	case msg.RequestContact != "":
		opts.ReplyMarkup = keyboard.ContactRequest(msg.RequestContact)
	case msg.ClearKeyboard:
		opts.ReplyMarkup = keyboard.RemoveKeyboard()
	case len(msg.Inline) > 0:
		rows := make([][]keyboard.InlineBtn, len(msg.Inline))
		for i, row := range msg.Inline {
			r := make([]keyboard.InlineBtn, len(row))
			for j, btn := range row {
				r[j] = keyboard.InlineBtn{Text: btn.Text, Unique: btn.Callback, URL: btn.URL}
			}
			rows[i] = r
		}
		opts.ReplyMarkup = keyboard.InlineButtonsRows(rows...)
	}
	return opts
}
