package dialog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/meetbot/bot/models"
	"github.com/m3rciful/meetbot/bot/session"
	"github.com/m3rciful/meetbot/bot/storage"
)

func testEngine(t *testing.T) (*Engine, *storage.MemoryDirectory, *fakeMessenger, *session.Store) {
	t.Helper()
	dir := storage.NewMemoryDirectory()
	msgr := newFakeMessenger()
	sessions := session.NewStore()
	eng := NewEngine(Options{
		Sessions:  sessions,
		Directory: dir,
		Messenger: msgr,
		Now:       func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) },
		Pick:      func(int) int { return 0 },
	})
	return eng, dir, msgr, sessions
}

func TestUnknownStateFallsBackToStart(t *testing.T) {
	eng, _, msgr, sessions := testEngine(t)
	ctx := context.Background()

	sessions.Get(100).State = "no_such_state"
	eng.HandleUpdate(ctx, CallbackInput(100, 1, "cb1", "alice", "whatever"))

	if got := sessions.Get(100).State; got != string(StateMainMenu) {
		t.Fatalf("state = %q, want %q", got, StateMainMenu)
	}
	if len(msgr.sent) == 0 {
		t.Fatal("welcome screen was not rendered")
	}
}

func TestStartCommandResetsAnyState(t *testing.T) {
	eng, dir, _, sessions := testEngine(t)
	ctx := context.Background()

	for _, prior := range []string{"", "question", "meeting", "age", "garbage"} {
		sessions.Get(200).State = prior
		eng.HandleUpdate(ctx, TextInput(200, 5, "bob", "/start"))
		if got := sessions.Get(200).State; got != string(StateMainMenu) {
			t.Fatalf("after /start from %q: state = %q, want %q", prior, got, StateMainMenu)
		}
	}

	// First contact also creates the user record.
	u, err := dir.UserByTelegramID(ctx, 200)
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.Nickname != "bob" {
		t.Fatalf("nickname = %q, want bob", u.Nickname)
	}
	if u.Registered() {
		t.Fatal("fresh user must not be registered")
	}
}

func TestStrayTokenHoldsState(t *testing.T) {
	eng, _, msgr, sessions := testEngine(t)
	ctx := context.Background()

	sessions.Get(300).State = string(StateEventMenu)
	sessions.Get(300).CurrentEvent = 1
	eng.HandleUpdate(ctx, CallbackInput(300, 2, "cb", "carol", "bogus_token"))

	if got := sessions.Get(300).State; got != string(StateEventMenu) {
		t.Fatalf("state = %q, want unchanged %q", got, StateEventMenu)
	}
	if len(msgr.sent)+len(msgr.edits) != 0 {
		t.Fatal("stray token must render nothing")
	}
}

func TestWizardCompletesProfileAndJoinsEvent(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	dir.PutEvent(models.Event{ID: 1, Title: "GopherConf"})
	sess := sessions.Get(400)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(400, 1, "cb", "dave", "register"))
	if sess.State != string(StateFullname) {
		t.Fatalf("state = %q, want %q", sess.State, StateFullname)
	}

	answers := []string{"Jane Doe", "29", "Engineer", "Python", "Chess", "Networking"}
	for _, a := range answers {
		eng.HandleUpdate(ctx, TextInput(400, 0, "dave", a))
	}

	if sess.State != string(StateStart) {
		t.Fatalf("final state = %q, want %q", sess.State, StateStart)
	}

	u, err := dir.UserByTelegramID(ctx, 400)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if u.Fullname != "Jane Doe" || u.Age != 29 || u.Activity != "Engineer" ||
		u.Stack != "Python" || u.Hobby != "Chess" || u.Purpose != "Networking" {
		t.Fatalf("profile incomplete: %+v", u)
	}
	if !u.Registered() {
		t.Fatal("user not marked registered")
	}

	member, _ := dir.IsMember(ctx, 1, 400)
	meeter, _ := dir.IsMeeter(ctx, 1, 400)
	if !member || !meeter {
		t.Fatalf("membership after wizard: member=%v meeter=%v", member, meeter)
	}

	if got := msgr.lastText(); !strings.Contains(got, "Pick an event") {
		t.Fatalf("expected welcome screen at the end, got %q", got)
	}
}

func TestAgeRejectsNonNumeric(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	dir.PutEvent(models.Event{ID: 1, Title: "GopherConf"})
	sess := sessions.Get(500)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)
	eng.HandleUpdate(ctx, CallbackInput(500, 1, "cb", "erin", "register"))
	eng.HandleUpdate(ctx, TextInput(500, 0, "erin", "Erin Example"))

	eng.HandleUpdate(ctx, TextInput(500, 0, "erin", "twenty"))
	if sess.State != string(StateAge) {
		t.Fatalf("state = %q, want to stay on %q", sess.State, StateAge)
	}
	if got := msgr.lastText(); !strings.Contains(got, "number") {
		t.Fatalf("expected re-prompt, got %q", got)
	}

	eng.HandleUpdate(ctx, TextInput(500, 0, "erin", "27"))
	if sess.State != string(StateActivity) {
		t.Fatalf("state = %q, want %q", sess.State, StateActivity)
	}
	u, _ := dir.UserByTelegramID(ctx, 500)
	if u.Age != 27 {
		t.Fatalf("age = %d, want 27", u.Age)
	}
}

func TestEventEditRoundTrip(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	dir.CreateUser(ctx, models.User{TelegramID: 600, Nickname: "frank", IsAdmin: true})
	sess := sessions.Get(600)
	sess.State = string(StateMainMenu)

	// Create: title prompt, then the title itself.
	eng.HandleUpdate(ctx, CallbackInput(600, 1, "cb", "frank", "create_event"))
	if sess.State != string(StateEventTitle) {
		t.Fatalf("state = %q, want %q", sess.State, StateEventTitle)
	}
	eng.HandleUpdate(ctx, TextInput(600, 0, "frank", "Go Meetup"))
	if sess.State != string(StateEditEvent) {
		t.Fatalf("state = %q, want %q", sess.State, StateEditEvent)
	}
	if sess.CurrentEvent == 0 {
		t.Fatal("event was not created")
	}
	if scr, ok := msgr.lastScreen(); !ok || !strings.Contains(scr.Text, "Go Meetup") {
		t.Fatalf("edit menu does not show the new title: %+v", scr)
	}

	// Rename.
	eng.HandleUpdate(ctx, CallbackInput(600, 2, "cb", "frank", "title"))
	eng.HandleUpdate(ctx, TextInput(600, 0, "frank", "Go Meetup 2026"))
	ev, err := dir.EventByID(ctx, sess.CurrentEvent)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Title != "Go Meetup 2026" {
		t.Fatalf("title = %q", ev.Title)
	}
	if scr, ok := msgr.lastScreen(); !ok || !strings.Contains(scr.Text, "Go Meetup 2026") {
		t.Fatalf("edit menu does not reflect rename: %+v", scr)
	}

	// Describe.
	eng.HandleUpdate(ctx, CallbackInput(600, 3, "cb", "frank", "text"))
	eng.HandleUpdate(ctx, TextInput(600, 0, "frank", "Talks and pizza."))
	ev, _ = dir.EventByID(ctx, sess.CurrentEvent)
	if ev.Description != "Talks and pizza." {
		t.Fatalf("description = %q", ev.Description)
	}
	if sess.State != string(StateEditEvent) {
		t.Fatalf("state = %q, want %q", sess.State, StateEditEvent)
	}
}

func TestDeleteEventReturnsToStart(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	dir.PutEvent(models.Event{ID: 3, Title: "Doomed"})
	dir.AddOrganizer(3, 700)
	sess := sessions.Get(700)
	sess.CurrentEvent = 3
	sess.State = string(StateEditEvent)

	eng.HandleUpdate(ctx, CallbackInput(700, 9, "cb9", "grace", "delete"))

	if _, err := dir.EventByID(ctx, 3); err == nil {
		t.Fatal("event still exists")
	}
	if sess.State != string(StateMainMenu) {
		t.Fatalf("state = %q, want %q", sess.State, StateMainMenu)
	}
	if len(msgr.toasts) == 0 || msgr.toasts[0] != "Event deleted" {
		t.Fatalf("toasts = %v", msgr.toasts)
	}
}

func TestQuestionForwardedToSpeaker(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	dir.PutEvent(models.Event{ID: 1, Title: "GopherConf", StartedAt: &start, FinishedAt: &end})
	dir.PutSpeech(models.Speech{
		ID: 1, EventID: 1, SpeakerID: 999, Title: "Generics in anger",
		StartedAt: now.Add(-10 * time.Minute), FinishedAt: now.Add(20 * time.Minute),
	})
	dir.CreateUser(ctx, models.User{TelegramID: 999, Nickname: "sam", Fullname: "Sam Speaker"})
	dir.AddMember(ctx, 1, 800)

	sess := sessions.Get(800)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(800, 1, "cb", "heidi", "ask"))
	if sess.State != string(StateQuestion) {
		t.Fatalf("state = %q, want %q", sess.State, StateQuestion)
	}
	if got := msgr.lastText(); !strings.Contains(got, "Sam Speaker") {
		t.Fatalf("prompt does not name the speaker: %q", got)
	}

	eng.HandleUpdate(ctx, TextInput(800, 0, "heidi", "Why no sum types?"))
	if sess.State != string(StateEventMenu) {
		t.Fatalf("state = %q, want %q", sess.State, StateEventMenu)
	}

	var forwarded bool
	for _, m := range msgr.sent {
		if m.ChatID == 999 && strings.Contains(m.Text, "Why no sum types?") &&
			strings.Contains(m.Text, "@heidi") {
			forwarded = true
		}
	}
	if !forwarded {
		t.Fatalf("question not forwarded to speaker; sent: %+v", msgr.sent)
	}
}

func TestRespondFallsBackToDeleteAndSend(t *testing.T) {
	eng, _, msgr, sessions := testEngine(t)
	ctx := context.Background()

	sessions.Get(900).State = string(StateMainMenu)
	// Message id 77 was never handed out by the fake, so the edit fails.
	eng.HandleUpdate(ctx, CallbackInput(900, 77, "cb", "ivan", "future_events"))

	if len(msgr.deleted) != 1 || msgr.deleted[0] != 77 {
		t.Fatalf("deleted = %v, want [77]", msgr.deleted)
	}
	if len(msgr.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgr.sent))
	}
	if sessions.Get(900).State != string(StateFutureEvents) {
		t.Fatalf("state = %q", sessions.Get(900).State)
	}
}

func TestBackButtonAppended(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	dir.PutEvent(models.Event{ID: 1, Title: "GopherConf"})
	sess := sessions.Get(950)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(950, 0, "cb", "judy", "speech_list"))

	scr, ok := msgr.lastScreen()
	if !ok {
		t.Fatal("no screen rendered")
	}
	lastRow := scr.Kb[len(scr.Kb)-1]
	if len(lastRow) != 1 || lastRow[0].Data != "back" || lastRow[0].Text != "< Back" {
		t.Fatalf("last row = %+v, want the back button", lastRow)
	}
}
