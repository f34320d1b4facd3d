package telegram

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/meetbot/core/config"
)

func TestNewPollerLongpollDefaults(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll

	p, ok := NewPoller(cfg).(*tele.LongPoller)
	if !ok {
		t.Fatalf("expected *tele.LongPoller, got %T", NewPoller(cfg))
	}
	if p.Timeout != defaultLongPollTimeout {
		t.Fatalf("timeout = %v, want %v", p.Timeout, defaultLongPollTimeout)
	}
	if len(p.AllowedUpdates) != 2 || p.AllowedUpdates[0] != "message" || p.AllowedUpdates[1] != "callback_query" {
		t.Fatalf("allowed updates = %v", p.AllowedUpdates)
	}
}

func TestNewPollerLongpollConfiguredTimeout(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.Telegram.LongPollTimeoutSeconds = 25

	p, ok := NewPoller(cfg).(*tele.LongPoller)
	if !ok {
		t.Fatalf("expected *tele.LongPoller, got %T", NewPoller(cfg))
	}
	if p.Timeout != 25*time.Second {
		t.Fatalf("timeout = %v, want 25s", p.Timeout)
	}
}

func TestNewPollerWebhook(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.URL = "https://bot.example.com/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443

	wh, ok := NewPoller(cfg).(*tele.Webhook)
	if !ok {
		t.Fatalf("expected *tele.Webhook, got %T", NewPoller(cfg))
	}
	if wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("listen = %q", wh.Listen)
	}
	if wh.Endpoint == nil || wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("endpoint = %+v", wh.Endpoint)
	}
	if len(wh.AllowedUpdates) != 2 {
		t.Fatalf("allowed updates = %v", wh.AllowedUpdates)
	}
}

func TestLongPollTimeoutFloor(t *testing.T) {
	cfg := &coreconfig.Config{}
	if got := LongPollTimeout(cfg); got != defaultLongPollTimeout {
		t.Fatalf("zero config timeout = %v, want %v", got, defaultLongPollTimeout)
	}
}

func TestNewHTTPClientOutlivesPollHold(t *testing.T) {
	c := NewHTTPClient(50 * time.Second)
	if c.Timeout != 70*time.Second {
		t.Fatalf("client timeout = %v, want 70s", c.Timeout)
	}

	// Short polls still get a usable floor for regular API calls.
	c = NewHTTPClient(2 * time.Second)
	if c.Timeout != minClientTimeout {
		t.Fatalf("client timeout = %v, want %v", c.Timeout, minClientTimeout)
	}
}
