package telegram

import (
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/meetbot/core/config"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates narrows delivery to the update kinds the dialogue engine
// consumes. Telegram drops everything else before it reaches the bot.
var allowedUpdates = []string{"message", "callback_query"}

// NewPoller selects webhook or long polling from the telegram config section.
func NewPoller(cfg *coreconfig.Config) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(cfg.Telegram.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:         fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
			AllowedUpdates: allowedUpdates,
		}
	}
	return &tele.LongPoller{
		Timeout:        LongPollTimeout(cfg),
		AllowedUpdates: allowedUpdates,
	}
}

// LongPollTimeout resolves the configured getUpdates hold time. The HTTP
// client timeout is derived from the same value so a held poll is never cut
// short by the transport.
func LongPollTimeout(cfg *coreconfig.Config) time.Duration {
	if cfg.Telegram.LongPollTimeoutSeconds > 0 {
		return time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second
	}
	return defaultLongPollTimeout
}
