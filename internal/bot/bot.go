// Package bot is the Telegram front end. It routes chat commands to the
// provisioner, runs the secret-gated status conversation, and turns
// every outcome into exactly one reply.
package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/deixis/ovpnbot/internal/provision"
	"github.com/deixis/ovpnbot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Provisioner runs the VPN management script.
// Implemented by *provision.Provisioner.
type Provisioner interface {
	ProvisionClient(ctx context.Context, name string) (*provision.Artifact, error)
	ServerStatus(ctx context.Context) (string, error)
	Discard(name string) []string
}

// Chat commands.
const (
	cmdStart  = "start"
	cmdHelp   = "help"
	cmdGetVPN = "getvpn"
	cmdSecure = "__secure_server_activity" // hidden from the command menu
)

const (
	configExt  = ".ovpn" // file name sent to the user, whatever the script wrote
	modeHTML   = tgbotapi.ModeHTML
	maxMessage = 4096 // Telegram limit on message text, in characters
)

// Bot handles Telegram updates.
type Bot struct {
	api      API
	prov     Provisioner
	sessions *session.Store
	secret   string
	now      func() time.Time

	wg sync.WaitGroup
}

// New creates a Bot. An empty secret disables the status command.
func New(api API, prov Provisioner, sessions *session.Store, secret string) *Bot {
	return &Bot{
		api:      api,
		prov:     prov,
		sessions: sessions,
		secret:   secret,
		now:      time.Now,
	}
}

// RegisterCommands publishes the public command menu.
func (b *Bot) RegisterCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: cmdStart, Description: "Start the bot"},
		tgbotapi.BotCommand{Command: cmdGetVPN, Description: "Create a VPN configuration"},
		tgbotapi.BotCommand{Command: cmdHelp, Description: "How to connect"},
	)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("registering commands: %w", err)
	}
	return nil
}

// Run handles updates until ctx is done or the channel is closed, each in
// its own goroutine, then waits for in-flight handlers to finish.
// Cancelling ctx stops intake only; handlers already running complete,
// bounded by the runner timeout.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	defer b.wg.Wait()
	reqCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						log.Printf("panic handling update %d: %v\n%s", u.UpdateID, r, debug.Stack())
					}
				}()
				b.HandleUpdate(reqCtx, u)
			}()
		}
	}
}

// HandleUpdate processes a single update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	key := session.Key{ChatID: msg.Chat.ID, UserID: msg.From.ID}

	if msg.IsCommand() {
		// A command always abandons a pending conversation step.
		b.sessions.Clear(key)
		b.handleCommand(ctx, msg, key)
		return
	}

	// Any non-command message ends a pending secret step, including
	// stickers and photos, which are denied like a wrong secret.
	switch b.sessions.Take(key) {
	case session.AwaitingSecret:
		b.handleSecret(ctx, msg)
	case session.Idle:
		// Messages outside a conversation are ignored.
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, key session.Key) {
	switch msg.Command() {
	case cmdStart:
		b.handleStart(msg)
	case cmdHelp:
		b.handleHelp(msg)
	case cmdGetVPN:
		b.handleGetVPN(ctx, msg)
	case cmdSecure:
		b.handleStatusRequest(msg, key)
	default:
		b.reply(msg.Chat.ID, unknownCommandText)
	}
}

// reply sends a plain text message. Send failures are logged only.
func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) bool {
	if _, err := b.api.Send(c); err != nil {
		log.Printf("warning: sending to Telegram: %v", err)
		return false
	}
	return true
}
