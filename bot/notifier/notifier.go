// Package notifier runs the speech overrun watch: a periodic check that
// prompts event organizers to extend a talk shortly before its scheduled end,
// and applies the decisions those prompts produce.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/meetbot/bot/dialog"
	"github.com/m3rciful/meetbot/bot/storage"
	"github.com/m3rciful/meetbot/bot/transport"
	"github.com/m3rciful/meetbot/core/logger"
)

// Options configures a Notifier.
type Options struct {
	Directory storage.Directory
	Messenger transport.Messenger

	// PollInterval is how often the current speech is checked.
	PollInterval time.Duration
	// WarnThreshold is the remaining time below which organizers get a prompt.
	WarnThreshold time.Duration
	// ExtensionMinutes are the offered extension choices, in minutes.
	ExtensionMinutes []int

	// Now exists for tests; defaults to time.Now.
	Now func() time.Time
}

// Notifier watches the currently running speech and prompts organizers to
// extend it when it is about to end. It shares the Directory with the
// dialogue engine; every write it performs is idempotent.
type Notifier struct {
	dir     storage.Directory
	msgr    transport.Messenger
	poll    time.Duration
	warn    time.Duration
	choices []int
	now     func() time.Time
}

// New builds a Notifier, filling unset options with working defaults.
func New(opts Options) *Notifier {
	n := &Notifier{
		dir:     opts.Directory,
		msgr:    opts.Messenger,
		poll:    opts.PollInterval,
		warn:    opts.WarnThreshold,
		choices: opts.ExtensionMinutes,
		now:     opts.Now,
	}
	if n.poll <= 0 {
		n.poll = 10 * time.Second
	}
	if n.warn <= 0 {
		n.warn = 5 * time.Minute
	}
	if len(n.choices) == 0 {
		n.choices = []int{5, 10, 15}
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// Run polls until the context is cancelled. Tick failures are logged and the
// loop keeps going.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.poll)
	defer ticker.Stop()

	logger.Info(ctx, "notify", "notify.start",
		slog.Duration("poll", n.poll),
		slog.Duration("warn", n.warn))
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "notify", "notify.stop")
			return
		case <-ticker.C:
			if err := n.Tick(ctx); err != nil {
				logger.Error(ctx, "notify", "notify.tick",
					slog.String("err", err.Error()))
			}
		}
	}
}

// Tick runs one poll pass: find the running speech, and if it is inside the
// warning window and not yet prompted, send each organizer the extension
// choices. The do_not_notify flag flips only after the prompts went out, so a
// failed send is retried on the next tick.
func (n *Notifier) Tick(ctx context.Context) error {
	now := n.now()
	speech, err := n.dir.CurrentSpeech(ctx, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("current speech: %w", err)
	}
	if speech.DoNotNotify {
		return nil
	}
	if speech.Remaining(now) > n.warn {
		return nil
	}

	organizers, err := n.dir.Organizers(ctx, speech.EventID)
	if err != nil {
		return fmt.Errorf("organizers: %w", err)
	}

	kb := n.promptKeyboard(speech.ID, now)
	text := fmt.Sprintf("<b>%s</b> ends in %d min. Extend it?",
		speech.Title, int(speech.Remaining(now).Minutes()))
	sent := 0
	for _, orgID := range organizers {
		if _, err := n.msgr.Send(ctx, orgID, text, kb); err != nil {
			logger.Warn(ctx, "notify", "notify.send",
				slog.Int64("speech_id", speech.ID),
				slog.Int64("chat_id", orgID),
				slog.String("err", err.Error()))
			continue
		}
		sent++
	}
	if sent == 0 && len(organizers) > 0 {
		return fmt.Errorf("speech %d: no prompt delivered", speech.ID)
	}

	if err := n.dir.SetDoNotNotify(ctx, speech.ID, true); err != nil {
		return fmt.Errorf("suppress speech %d: %w", speech.ID, err)
	}
	logger.Info(ctx, "notify", "notify.prompted",
		slog.Int64("speech_id", speech.ID),
		slog.Int("attempts", sent))
	return nil
}

func (n *Notifier) promptKeyboard(speechID int64, issuedAt time.Time) transport.Keyboard {
	row := make([]transport.Button, 0, len(n.choices))
	for _, m := range n.choices {
		row = append(row, transport.Button{
			Text: fmt.Sprintf("+%d min", m),
			Data: dialog.EncodeExtension(dialog.ExtensionDecision{
				SpeechID:      speechID,
				IssuedAt:      issuedAt.Unix(),
				ExtendMinutes: m,
			}),
		})
	}
	return transport.Keyboard{
		row,
		{{
			Text: "Do not extend",
			Data: dialog.EncodeExtension(dialog.ExtensionDecision{
				SpeechID: speechID,
				IssuedAt: issuedAt.Unix(),
			}),
		}},
	}
}

var _ dialog.ExtensionApplier = (*Notifier)(nil)

// Apply resolves an organizer's extension decision. The speech is re-resolved
// by the moment encoded in the payload; a decision arriving after the speech
// already finished is discarded without touching anything.
func (n *Notifier) Apply(ctx context.Context, d dialog.ExtensionDecision) (bool, error) {
	at := time.Unix(d.IssuedAt, 0)
	speech, err := n.dir.CurrentSpeech(ctx, at)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("resolve speech: %w", err)
	}
	if speech.ID != d.SpeechID {
		return false, nil
	}
	if speech.FinishedAt.Before(n.now()) {
		logger.Debug(ctx, "notify", "notify.stale_decision",
			slog.Int64("speech_id", d.SpeechID))
		return false, nil
	}

	if d.ExtendMinutes > 0 {
		by := time.Duration(d.ExtendMinutes) * time.Minute
		if err := n.dir.ExtendSpeech(ctx, speech.ID, by); err != nil {
			return false, fmt.Errorf("extend speech %d: %w", speech.ID, err)
		}
	}
	if err := n.dir.SetDoNotNotify(ctx, speech.ID, true); err != nil {
		return false, fmt.Errorf("suppress speech %d: %w", speech.ID, err)
	}
	logger.Info(ctx, "notify", "notify.applied",
		slog.Int64("speech_id", speech.ID),
		slog.Int("extend_minutes", d.ExtendMinutes))
	return true, nil
}
