// Package format provides small helpers for building Telegram HTML messages.
package format

import (
	"fmt"
	"html"
)

// EscapeHTML escapes user-supplied text for safe interpolation into a
// Telegram HTML message body.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b> tags.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}

// Code wraps escaped text in <code> tags.
func Code(text string) string {
	return "<code>" + EscapeHTML(text) + "</code>"
}

// Link renders an <a> anchor with an escaped label.
func Link(url, label string) string {
	return fmt.Sprintf("<a href=%q>%s</a>", url, EscapeHTML(label))
}
