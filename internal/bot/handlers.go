package bot

import (
	"context"
	"crypto/subtle"
	"fmt"
	"html"
	"log"

	"github.com/deixis/ovpnbot/internal/provision"
	"github.com/deixis/ovpnbot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, fmt.Sprintf(startText, displayName(msg.From)))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	m := tgbotapi.NewMessage(msg.Chat.ID, helpText)
	m.ParseMode = modeHTML
	m.DisableWebPagePreview = true
	b.send(m)
}

// handleGetVPN provisions a fresh client and sends its configuration.
// Whatever happens, no configuration file for the client is left on disk.
func (b *Bot) handleGetVPN(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	name := provision.ClientName(msg.From.UserName, msg.From.ID, b.now())

	b.reply(chatID, creatingText)

	art, err := b.prov.ProvisionClient(ctx, name)
	if err != nil {
		log.Printf("getvpn for user %d (%s): %v", msg.From.ID, name, err)
		b.prov.Discard(name)
		b.reply(chatID, failureText(err))
		return
	}
	defer func() { _ = art.Remove() }()

	data, err := art.Read()
	if err != nil {
		log.Printf("getvpn for user %d (%s): %v", msg.From.ID, name, err)
		b.reply(chatID, failureText(err))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name + configExt, Bytes: data})
	doc.Caption = fmt.Sprintf(readyCaption, html.EscapeString(name))
	doc.ParseMode = modeHTML
	if !b.send(doc) {
		b.reply(chatID, sendFailedText)
		return
	}
	log.Printf("sent configuration %s to user %d", name, msg.From.ID)
}

// handleStatusRequest starts the secret-gated status conversation.
func (b *Bot) handleStatusRequest(msg *tgbotapi.Message, key session.Key) {
	log.Printf("server status requested by user %d", msg.From.ID)
	b.sessions.Set(key, session.AwaitingSecret)

	m := tgbotapi.NewMessage(msg.Chat.ID, askSecretText)
	m.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(m)
}

// handleSecret completes the status conversation. The session has
// already been reset by the caller.
func (b *Bot) handleSecret(ctx context.Context, msg *tgbotapi.Message) {
	if !b.secretMatches(msg.Text) {
		log.Printf("warning: wrong status secret from user %d", msg.From.ID)
		b.reply(msg.Chat.ID, accessDeniedText)
		return
	}
	log.Printf("status secret accepted for user %d", msg.From.ID)

	out, err := b.prov.ServerStatus(ctx)
	if err != nil {
		log.Printf("server status for user %d: %v", msg.From.ID, err)
		b.reply(msg.Chat.ID, failureText(err))
		return
	}

	m := tgbotapi.NewMessage(msg.Chat.ID, statusText(out))
	m.ParseMode = modeHTML
	m.DisableWebPagePreview = true
	b.send(m)
}

// secretMatches compares in constant time. An unset secret never matches.
func (b *Bot) secretMatches(text string) bool {
	if b.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(text), []byte(b.secret)) == 1
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return fmt.Sprintf("user_%d", u.ID)
}
