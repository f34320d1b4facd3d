// Package transport wraps the Telegram message surface the bot consumes:
// sending, editing and deleting chat messages with inline keyboards, and
// answering callback queries. All calls are best-effort; callers are expected
// to catch and swallow failures rather than surface them to users.
package transport

import "context"

// Button is one inline keyboard button with an opaque callback token.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of inline buttons.
type Keyboard [][]Button

// Messenger is the outbound message surface consumed by the dialogue engine
// and the extension notifier.
type Messenger interface {
	// Send posts a new message and returns its id.
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	// Edit rewrites an existing message in place. It fails when the message
	// is no longer editable; callers fall back to Delete+Send.
	Edit(ctx context.Context, chatID int64, msgID int, text string, kb Keyboard) error
	// Delete removes a message, best-effort.
	Delete(ctx context.Context, chatID int64, msgID int) error
	// SendPhoto posts an image with a caption and returns the message id.
	SendPhoto(ctx context.Context, chatID int64, imageRef, caption string, kb Keyboard) (int, error)
	// AnswerCallback acknowledges a callback query, optionally with a toast.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
