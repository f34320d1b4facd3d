package dialog

import (
	"context"
	"errors"
	"sync"

	"github.com/m3rciful/meetbot/bot/transport"
)

// fakeMessenger records every outbound call for assertions. Edit succeeds
// only for message ids it has itself handed out, mimicking Telegram's
// "message to edit not found" behavior.
type fakeMessenger struct {
	mu sync.Mutex

	nextID  int
	sent    []fakeMessage
	edits   []fakeMessage
	screens []fakeMessage // sends and edits, in call order
	deleted []int
	toasts  []string

	editable map[int]bool
}

type fakeMessage struct {
	ChatID int64
	ID     int
	Text   string
	Kb     transport.Keyboard
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{editable: make(map[int]bool)}
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, kb transport.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.editable[f.nextID] = true
	msg := fakeMessage{ChatID: chatID, ID: f.nextID, Text: text, Kb: kb}
	f.sent = append(f.sent, msg)
	f.screens = append(f.screens, msg)
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(_ context.Context, chatID int64, msgID int, text string, kb transport.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.editable[msgID] {
		return errors.New("message to edit not found")
	}
	msg := fakeMessage{ChatID: chatID, ID: msgID, Text: text, Kb: kb}
	f.edits = append(f.edits, msg)
	f.screens = append(f.screens, msg)
	return nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, msgID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.editable, msgID)
	f.deleted = append(f.deleted, msgID)
	return nil
}

func (f *fakeMessenger) SendPhoto(ctx context.Context, chatID int64, _ string, caption string, kb transport.Keyboard) (int, error) {
	return f.Send(ctx, chatID, caption, kb)
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, text)
	return nil
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

func (f *fakeMessenger) lastScreen() (fakeMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.screens) == 0 {
		return fakeMessage{}, false
	}
	return f.screens[len(f.screens)-1], true
}
