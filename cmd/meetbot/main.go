// Command meetbot runs the conference assistant bot: the dialogue engine over
// Telegram plus the speech extension notifier, backed by Postgres.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/meetbot/bot/dialog"
	"github.com/m3rciful/meetbot/bot/notifier"
	"github.com/m3rciful/meetbot/bot/session"
	"github.com/m3rciful/meetbot/bot/storage"
	"github.com/m3rciful/meetbot/bot/transport"
	"github.com/m3rciful/meetbot/core/buildinfo"
	"github.com/m3rciful/meetbot/core/config"
	"github.com/m3rciful/meetbot/core/database"
	"github.com/m3rciful/meetbot/core/logger"
	"github.com/m3rciful/meetbot/core/telegram"
	"github.com/m3rciful/meetbot/core/telegram/middleware"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("meetbot: %v", err)
	}
}

func run() error {
	log.Printf("meetbot %s", buildinfo.String())

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	log.Printf("loading config: %s", cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.InitLogger(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Dir:     cfg.Logging.Dir,
		File:    cfg.Logging.File,
		Profile: cfg.Logging.Profile,
	}); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}

	dir := storage.NewPostgresDirectory(db)
	sessions := session.NewStore()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()

	runOpts := telegram.RunOptions{
		Config: cfg,
		Middlewares: []telegram.Middleware{
			{Name: "recover", Use: middleware.RecoverMiddleware},
			{Name: "logging", Use: middleware.LoggerMiddleware},
			{Name: "rate_limit", Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval: time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:  rateLimitExclusions(cfg.RateLimit.ExcludeUpdates),
			})},
		},
	}

	var notify *notifier.Notifier
	runOpts.Setup = func(rt telegram.Runtime) ([]telegram.Route, error) {
		msgr := transport.NewTelebotMessenger(rt.Bot, rt.Dispatcher)

		notify = notifier.New(notifier.Options{
			Directory:        dir,
			Messenger:        msgr,
			PollInterval:     cfg.NotifierPollInterval(),
			WarnThreshold:    cfg.NotifierWarnThreshold(),
			ExtensionMinutes: cfg.Notifier.ExtensionMinutes,
		})

		engine := dialog.NewEngine(dialog.Options{
			Sessions:   sessions,
			Directory:  dir,
			Messenger:  msgr,
			Extensions: notify,
			AdminURL:   cfg.Bot.EventsAdminURL,
		})

		return []telegram.Route{
			{Endpoint: "/start", Handler: textRoute(engine)},
			{Endpoint: tele.OnText, Handler: textRoute(engine)},
			{Endpoint: tele.OnCallback, Handler: callbackRoute(engine)},
		}, nil
	}

	runOpts.OnStart = func(ctx context.Context, _ telegram.Runtime) error {
		go notify.Run(ctx)
		logger.L.With("component", "app").Info("app ready",
			slog.String("event", "ready"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}
	runOpts.OnStop = func(context.Context, telegram.Runtime) error {
		logger.L.With("component", "app").Info("shutting down...",
			slog.String("event", "shutdown"),
		)
		return nil
	}

	return telegram.RunTelegram(ctx, runOpts)
}

// textRoute adapts incoming messages into dialogue inputs.
func textRoute(engine *dialog.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg := c.Message()
		if msg == nil || msg.Chat == nil {
			return nil
		}
		in := dialog.TextInput(msg.Chat.ID, msg.ID, senderUsername(c), msg.Text)
		engine.HandleUpdate(middleware.ContextFrom(c), in)
		return nil
	}
}

// callbackRoute adapts button presses into dialogue inputs. The callback is
// acknowledged immediately so the client stops its spinner even when the
// handler takes its time.
func callbackRoute(engine *dialog.Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
			return nil
		}
		_ = c.Respond()

		// telebot prefixes callback data with "\f" for unique markups.
		token := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
		in := dialog.CallbackInput(cb.Message.Chat.ID, cb.Message.ID, cb.ID, senderUsername(c), token)
		engine.HandleUpdate(middleware.ContextFrom(c), in)
		return nil
	}
}

func senderUsername(c tele.Context) string {
	if u := c.Sender(); u != nil {
		return u.Username
	}
	return ""
}

func rateLimitExclusions(kinds []string) map[string]struct{} {
	out := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		out[k] = struct{}{}
	}
	return out
}
