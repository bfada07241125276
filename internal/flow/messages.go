package flow

import (
	"fmt"

	"github.com/m3rciful/subgate/core/telegram/format"
	"github.com/m3rciful/subgate/internal/transport"
)

// CallbackCheckSubscription is the callback key carried by every
// "I subscribed" / "try again" button. Activating it re-enters the
// membership check.
const CallbackCheckSubscription = "check_sub"

// Messages renders the outbound texts of the gate conversation.
type Messages struct {
	// ChannelName is the human-readable channel identifier shown to users.
	ChannelName string
	// ChannelLink is the public https://t.me/... link, empty for private channels.
	ChannelLink string
}

func (m Messages) subscribeLine() string {
	if m.ChannelLink == "" {
		return format.EscapeHTML(m.ChannelName)
	}
	return format.Link(m.ChannelLink, "📌Подписаться")
}

func checkButton(label string) [][]transport.Button {
	return [][]transport.Button{{
		{Text: label, Callback: CallbackCheckSubscription},
	}}
}

// Welcome is the reply to /start: greeting, subscribe link, and the
// subscription-check button.
func (m Messages) Welcome(firstName string) transport.Message {
	if firstName == "" {
		firstName = "Друзья"
	}
	text := fmt.Sprintf(
		"Приятно познакомиться, %s! 🙌\n\n"+
			"Я — виртуальный ассистент Марины Кузьминичны.\n\n"+
			"Чтобы записаться на персональный разбор, подпишитесь на наш канал:\n\n"+
			"%s\n\n"+
			"После подписки нажми кнопку ниже",
		format.EscapeHTML(firstName), m.subscribeLine(),
	)
	return transport.Message{
		Text:   text,
		Mode:   transport.ModeHTML,
		Inline: checkButton("✅ Подписался/-ась 🙂‍↕️"),
	}
}

// NotSubscribed renders the retry prompt. The attempt number keeps every
// retry body distinct so in-place edits are never rejected as unmodified.
func (m Messages) NotSubscribed(firstName string, attempt int) transport.Message {
	if firstName == "" {
		firstName = "Друг"
	}
	text := fmt.Sprintf(
		"⚠️ %s, к сожалению, вы ещё не подписались..\n\n"+
			"📢 Пожалуйста, подпишитесь и попробуйте снова!\n\n"+
			"%s\n\n"+
			"(Попытка #%d)",
		format.EscapeHTML(firstName), m.subscribeLine(), attempt,
	)
	return transport.Message{
		Text:   text,
		Mode:   transport.ModeHTML,
		Inline: checkButton("🔄 Попробовать снова"),
	}
}

// GateUnavailable is shown when the membership check itself failed. It never
// claims the user is unsubscribed.
func (m Messages) GateUnavailable(firstName string) transport.Message {
	if firstName == "" {
		firstName = "Друг"
	}
	text := fmt.Sprintf(
		"❌ Ошибка подключения к каналу, %s!\n\n"+
			"Возможные причины:\n"+
			"• Канал не найден\n"+
			"• Бот не добавлен в администраторы канала\n"+
			"• Канал приватный\n\n"+
			"🔧 Решение:\n"+
			"1. Убедитесь, что канал публичный (%s)\n"+
			"2. Добавьте бота как администратора в канал\n\n"+
			"Попробуйте позже или свяжитесь с поддержкой.",
		format.EscapeHTML(firstName), format.EscapeHTML(m.ChannelName),
	)
	return transport.Message{
		Text:   text,
		Mode:   transport.ModeHTML,
		Inline: checkButton("🔄 Попробовать снова"),
	}
}

// ContactRequest asks the confirmed subscriber to share their phone contact.
func (m Messages) ContactRequest(firstName string) transport.Message {
	if firstName == "" {
		firstName = "Друг"
	}
	text := fmt.Sprintf(
		"🎉 Прекрасно, %s!\n\n"+
			"Вижу вашу подписку!\n\n"+
			"📝 Поделитесь, пожалуйста, вашим контактом, чтобы записаться на консультацию.\n\n"+
			"Нажмите на кнопку ⬇️",
		format.EscapeHTML(firstName),
	)
	return transport.Message{
		Text:           text,
		Mode:           transport.ModeHTML,
		RequestContact: "📱 Поделиться номером",
	}
}

// ThankYou acknowledges a successfully relayed contact and clears the keyboard.
func (m Messages) ThankYou(firstName string) transport.Message {
	if firstName == "" {
		firstName = "Друг"
	}
	text := fmt.Sprintf(
		"✅ Отлично, %s!\n\n"+
			"Передал ваш контакт Марине Кузьминичне!\n\n"+
			"🙌 В течении 15 минут она свяжется с Вами и запишет на консультацию!",
		format.EscapeHTML(firstName),
	)
	return transport.Message{
		Text:          text,
		Mode:          transport.ModeHTML,
		ClearKeyboard: true,
	}
}

// RelayFailed tells the user their submission did not reach the operator.
// It is deliberately distinct from ThankYou.
func (m Messages) RelayFailed() transport.Message {
	return transport.Message{
		Text:          "❌ Ошибка отправки данных владельцу. Попробуйте позже.",
		Mode:          transport.ModePlain,
		ClearKeyboard: true,
	}
}

// AwaitingContactReminder nudges a user who typed text instead of pressing
// the contact button.
func (m Messages) AwaitingContactReminder() transport.Message {
	return transport.Message{
		Text: "📝 Пожалуйста, нажмите кнопку «📱 Поделиться номером» ниже.",
		Mode: transport.ModePlain,
	}
}

// StartHint points a user without an active conversation at /start.
func (m Messages) StartHint() transport.Message {
	return transport.Message{
		Text: "Отправьте /start, чтобы начать запись.",
		Mode: transport.ModePlain,
	}
}
