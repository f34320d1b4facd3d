// Package dialog implements the conversation state machine: one handler per
// state, a session-backed transition loop, and the screens the handlers
// render. Raw Telegram updates are decoded into tagged Input values at the
// transport boundary; handlers never see wire payloads.
package dialog

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/m3rciful/meetbot/bot/session"
	"github.com/m3rciful/meetbot/bot/storage"
	"github.com/m3rciful/meetbot/bot/transport"
	"github.com/m3rciful/meetbot/core/logger"
)

// HandlerFunc consumes one input in a given state and returns the next state.
// Returning an empty state holds the current one.
type HandlerFunc func(ctx context.Context, in Input, sess *session.Session) (State, error)

// Payments requests a donation flow for an event. The engine holds state
// while the payment provider drives its own UI.
type Payments interface {
	RequestDonation(ctx context.Context, chatID, eventID int64) error
}

// NopPayments acknowledges donation requests without charging anyone.
type NopPayments struct {
	Msgr transport.Messenger
}

// RequestDonation implements Payments with a plain thank-you message.
func (p NopPayments) RequestDonation(ctx context.Context, chatID, _ int64) error {
	if p.Msgr == nil {
		return nil
	}
	_, err := p.Msgr.Send(ctx, chatID, "Donations are not set up yet, but thank you!", nil)
	return err
}

// ExtensionApplier applies a speech extension decision. The boolean reports
// whether the decision was applied or discarded as stale.
type ExtensionApplier interface {
	Apply(ctx context.Context, d ExtensionDecision) (bool, error)
}

// Options configures a dialogue engine.
type Options struct {
	Sessions   *session.Store
	Directory  storage.Directory
	Messenger  transport.Messenger
	Payments   Payments
	Extensions ExtensionApplier

	// AdminURL is the external events admin panel linked from the edit menu.
	AdminURL string

	// Now and Pick exist for tests; both default to the obvious choices.
	Now  func() time.Time
	Pick func(n int) int
}

// Engine routes decoded inputs through per-state handlers and persists the
// resulting state in the session store.
type Engine struct {
	sessions   *session.Store
	dir        storage.Directory
	msgr       transport.Messenger
	payments   Payments
	extensions ExtensionApplier
	adminURL   string

	now  func() time.Time
	pick func(n int) int

	handlers map[State]HandlerFunc
}

// NewEngine builds the engine and registers the state handler table.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		sessions:   opts.Sessions,
		dir:        opts.Directory,
		msgr:       opts.Messenger,
		payments:   opts.Payments,
		extensions: opts.Extensions,
		adminURL:   opts.AdminURL,
		now:        opts.Now,
		pick:       opts.Pick,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.pick == nil {
		e.pick = rand.Intn
	}
	if e.payments == nil {
		e.payments = NopPayments{Msgr: e.msgr}
	}

	e.handlers = map[State]HandlerFunc{
		StateStart:        e.showStartMenu,
		StateMainMenu:     e.handleMainMenu,
		StateEventMenu:    e.handleEventMenu,
		StateFutureEvents: e.handleFutureEvents,
		StateSpeechList:   e.handleSpeechList,
		StateEditEvent:    e.handleEditEvent,
		StateEventTitle:   e.handleEventTitle,
		StateEventText:    e.handleEventText,
		StateQuestion:     e.handleQuestion,
		StateFullname:     e.handleFullname,
		StateAge:          e.handleAge,
		StateActivity:     e.handleActivity,
		StateStack:        e.handleStack,
		StateHobby:        e.handleHobby,
		StatePurpose:      e.handlePurpose,
		StateMeeting:      e.handleMeeting,
	}
	return e
}

// HandleUpdate is the single entry point for decoded updates. It never
// returns an error to the transport layer: handler failures are logged and
// the chat keeps its state.
func (e *Engine) HandleUpdate(ctx context.Context, in Input) {
	// Extension decisions are stateless: they bypass the session machine.
	if in.Kind == KindDecision {
		e.applyDecision(ctx, in)
		return
	}

	sess := e.sessions.Get(in.ChatID)
	state := State(sess.State)

	if isStartCommand(in) {
		e.ensureUser(ctx, in)
		state = StateStart
	}

	handler, ok := e.handlers[state]
	if !ok {
		handler = e.handlers[StateStart]
		state = StateStart
	}

	next, err := handler(ctx, in, sess)
	if err != nil {
		logger.Error(ctx, "dialog", "dialog.handler",
			slog.String("state", string(state)),
			slog.String("err", err.Error()))
		return
	}
	if next == "" {
		return
	}
	if next != state {
		logger.Debug(ctx, "dialog", "dialog.transition",
			slog.String("state", string(state)),
			slog.String("next_state", string(next)))
	}
	sess.State = string(next)
}

func (e *Engine) applyDecision(ctx context.Context, in Input) {
	if in.Decision == nil || e.extensions == nil {
		return
	}
	applied, err := e.extensions.Apply(ctx, *in.Decision)
	if err != nil {
		logger.Error(ctx, "dialog", "dialog.extension",
			slog.Int64("speech_id", in.Decision.SpeechID),
			slog.String("err", err.Error()))
		return
	}
	toast := "Noted."
	switch {
	case !applied:
		toast = "The talk has already finished."
	case in.Decision.ExtendMinutes > 0:
		toast = "The talk was extended."
	}
	if in.CallbackID != "" {
		_ = e.msgr.AnswerCallback(ctx, in.CallbackID, toast)
	}
	if in.MessageID != 0 {
		_ = e.msgr.Delete(ctx, in.ChatID, in.MessageID)
	}
}

// ensureUser creates a directory record for first-time visitors.
func (e *Engine) ensureUser(ctx context.Context, in Input) {
	_, err := e.dir.UserByTelegramID(ctx, in.ChatID)
	if err == nil {
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		logger.Warn(ctx, "dialog", "dialog.ensure_user",
			slog.String("err", err.Error()))
		return
	}
	u := e.emptyUser(in)
	if err := e.dir.CreateUser(ctx, u); err != nil {
		logger.Warn(ctx, "dialog", "dialog.create_user",
			slog.String("err", err.Error()))
	}
}

// respond renders a screen into the chat. It edits the triggering message in
// place when possible; if the edit fails the old message is removed and a
// fresh one sent. A back button is appended unless the screen opts out.
func (e *Engine) respond(ctx context.Context, in Input, text string, kb transport.Keyboard, withBack bool) error {
	if withBack {
		kb = append(kb, []transport.Button{{Text: "< Back", Data: cmdBack}})
	}
	if in.MessageID != 0 && in.Kind != KindText {
		if err := e.msgr.Edit(ctx, in.ChatID, in.MessageID, text, kb); err == nil {
			return nil
		}
		_ = e.msgr.Delete(ctx, in.ChatID, in.MessageID)
	}
	_, err := e.msgr.Send(ctx, in.ChatID, text, kb)
	return err
}

// send posts a screen as a new message, used where editing makes no sense.
func (e *Engine) send(ctx context.Context, chatID int64, text string, kb transport.Keyboard) error {
	_, err := e.msgr.Send(ctx, chatID, text, kb)
	return err
}
