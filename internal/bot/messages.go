package bot

import (
	"errors"
	"html"
	"strings"
	"unicode/utf16"

	"github.com/deixis/ovpnbot/internal/provision"
)

const (
	startText = "Hello, %s! 👋\n" +
		"🤖 I create OpenVPN configurations.\n\n" +
		"Use /getvpn to get yours."

	helpText = "📖 <b>Bot help</b>\n\n" +
		"<b>Commands:</b>\n" +
		"• /start — start the bot\n" +
		"• /getvpn — create a VPN configuration\n" +
		"• /help — show this help\n\n" +
		"🌐 <b>How to connect:</b>\n" +
		"1) Send <code>/getvpn</code> and the bot will create your personal configuration.\n" +
		"2) Download the <code>.ovpn</code> file it sends.\n" +
		"3) Install an <b>OpenVPN</b> client:\n" +
		" • Windows — <a href='https://openvpn.net/community-downloads/'>OpenVPN GUI</a>\n" +
		" • Android — <a href='https://play.google.com/store/apps/details?id=net.openvpn.openvpn'>OpenVPN Connect</a>\n" +
		" • iOS — <a href='https://apps.apple.com/app/openvpn-connect/id590379981'>OpenVPN Connect</a>\n" +
		"4) Import the <code>.ovpn</code> file into the app.\n" +
		"5) Tap «Connect» and you are on the VPN! 🔐"

	creatingText       = "⏳ Creating your VPN configuration..."
	readyCaption       = "✅ VPN configuration for <code>%s</code> is ready!\n\n💡 Open this file in OpenVPN Connect."
	sendFailedText     = "❌ The configuration was created but could not be sent. Please try again."
	askSecretText      = "Enter the secret code to check server activity"
	accessDeniedText   = "❌ Access denied"
	unknownCommandText = "Unknown command. Use /help."

	statusHeader = "✅ Server is up\n\n"
	noOutput     = "(no output)"
	truncatedTag = "\n…"
)

// failureText maps an error to the single message shown to the user.
// Diagnostics stay in the logs.
func failureText(err error) string {
	var (
		invalid  *provision.InvalidClientNameError
		execErr  *provision.ExecutionError
		notFound *provision.ArtifactNotFoundError
	)
	switch {
	case errors.As(err, &invalid):
		return "❌ Your Telegram name cannot be used for a VPN client. Set a username made of letters, digits or _ and try again."
	case errors.Is(err, provision.ErrTimeout):
		return "⌛ The VPN server took too long to respond. Please try again later."
	case errors.As(err, &execErr):
		return "❌ The VPN server could not complete the request. Please try again later."
	case errors.As(err, &notFound):
		return "❌ The configuration file was not found. Please try again."
	default:
		return "⚠️ An unexpected error occurred. Please try again later."
	}
}

// statusText renders script output as an HTML message that fits
// Telegram's length limit, which counts UTF-16 code units.
func statusText(out string) string {
	if strings.TrimSpace(out) == "" {
		out = noOutput
	}
	budget := maxMessage - utf16Len(statusHeader) - utf16Len(truncatedTag)
	if utf16Len(out) > budget {
		n := 0
		for i, r := range out {
			w := utf16.RuneLen(r)
			if w < 0 {
				w = 1 // invalid rune, sent as U+FFFD
			}
			if n+w > budget {
				out = out[:i] + truncatedTag
				break
			}
			n += w
		}
	}
	return statusHeader + "<pre>" + html.EscapeString(out) + "</pre>"
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if w := utf16.RuneLen(r); w > 0 {
			n += w
		} else {
			n++
		}
	}
	return n
}
