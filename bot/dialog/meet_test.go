package dialog

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/meetbot/bot/models"
	"github.com/m3rciful/meetbot/bot/storage"
)

func seedMeetEvent(t *testing.T, dir *storage.MemoryDirectory, viewerID int64, candidates ...int64) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	dir.PutEvent(models.Event{ID: 1, Title: "GopherConf", StartedAt: &start, FinishedAt: &end})

	dir.CreateUser(ctx, models.User{
		TelegramID: viewerID, Nickname: "viewer", Fullname: "The Viewer",
		Registration: models.RegistrationRegistered,
	})
	dir.AddMember(ctx, 1, viewerID)

	for _, id := range candidates {
		dir.CreateUser(ctx, models.User{
			TelegramID: id,
			Nickname:   "nick" + strconv.FormatInt(id, 10),
			Fullname:   "Candidate " + strconv.FormatInt(id, 10),
			Activity:   "Gopher", Purpose: "Networking",
			Registration: models.RegistrationRegistered,
		})
		dir.AddMeeter(ctx, 1, id)
	}
}

func TestMeetNeverRepeatsCandidates(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	seedMeetEvent(t, dir, 10, 21, 22, 23)
	sess := sessions.Get(10)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(10, 1, "cb", "viewer", "meet"))
	if sess.State != string(StateMeeting) {
		t.Fatalf("state = %q, want %q", sess.State, StateMeeting)
	}

	seen := make(map[int64]bool)
	recordShown := func() {
		scr, ok := msgr.lastScreen()
		if !ok {
			t.Fatal("no candidate card rendered")
		}
		id, err := strconv.ParseInt(scr.Kb[0][0].Data, 10, 64)
		if err != nil {
			t.Fatalf("candidate card keyboard: %+v", scr.Kb)
		}
		if id == 10 {
			t.Fatal("viewer offered to themselves")
		}
		if seen[id] {
			t.Fatalf("candidate %d offered twice", id)
		}
		seen[id] = true
	}

	recordShown()
	prevCount := sess.ExclusionCount()
	for i := 0; i < 2; i++ {
		eng.HandleUpdate(ctx, CallbackInput(10, 0, "cb", "viewer", "next"))
		recordShown()
		if sess.ExclusionCount() != prevCount+1 {
			t.Fatalf("exclusion count = %d, want %d", sess.ExclusionCount(), prevCount+1)
		}
		prevCount = sess.ExclusionCount()
	}
	if len(seen) != 3 {
		t.Fatalf("saw %d distinct candidates, want 3", len(seen))
	}
}

func TestMeetEmptyPoolDoesNotMutateExclusions(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	seedMeetEvent(t, dir, 10, 21)
	sess := sessions.Get(10)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(10, 1, "cb", "viewer", "meet"))
	if sess.ExclusionCount() != 1 {
		t.Fatalf("exclusion count = %d, want 1", sess.ExclusionCount())
	}

	// The single candidate is used up; the pool is now empty.
	for i := 0; i < 3; i++ {
		eng.HandleUpdate(ctx, CallbackInput(10, 0, "cb", "viewer", "next"))
		scr, ok := msgr.lastScreen()
		if !ok || !strings.Contains(scr.Text, "No one else is available") {
			t.Fatalf("want empty-pool message, got %+v", scr)
		}
		if sess.ExclusionCount() != 1 {
			t.Fatalf("empty pool mutated exclusions: %d", sess.ExclusionCount())
		}
		if sess.State != string(StateMeeting) {
			t.Fatalf("state = %q", sess.State)
		}
	}
}

func TestMeetRevealsContact(t *testing.T) {
	eng, dir, msgr, sessions := testEngine(t)
	ctx := context.Background()

	seedMeetEvent(t, dir, 10, 21)
	sess := sessions.Get(10)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(10, 1, "cb", "viewer", "meet"))
	eng.HandleUpdate(ctx, CallbackInput(10, 0, "cb", "viewer", "21"))

	if got := msgr.lastText(); !strings.Contains(got, "@nick21") {
		t.Fatalf("contact not revealed: %q", got)
	}
	if sess.State != string(StateMeeting) {
		t.Fatalf("state = %q, want %q", sess.State, StateMeeting)
	}
}

func TestMeetRoutesUnregisteredThroughWizard(t *testing.T) {
	eng, dir, _, sessions := testEngine(t)
	ctx := context.Background()

	seedMeetEvent(t, dir, 10, 21)
	dir.CreateUser(ctx, models.User{TelegramID: 30, Nickname: "newbie"})
	dir.AddMember(ctx, 1, 30)
	sess := sessions.Get(30)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(30, 1, "cb", "newbie", "meet"))
	if sess.State != string(StateFullname) {
		t.Fatalf("state = %q, want %q", sess.State, StateFullname)
	}
	if meeter, _ := dir.IsMeeter(ctx, 1, 30); meeter {
		t.Fatal("unregistered user must not be opted in yet")
	}
}

func TestMeetOptsRegisteredViewerIn(t *testing.T) {
	eng, dir, _, sessions := testEngine(t)
	ctx := context.Background()

	seedMeetEvent(t, dir, 10, 21)
	sess := sessions.Get(10)
	sess.CurrentEvent = 1
	sess.State = string(StateEventMenu)

	eng.HandleUpdate(ctx, CallbackInput(10, 1, "cb", "viewer", "meet"))
	if meeter, _ := dir.IsMeeter(ctx, 1, 10); !meeter {
		t.Fatal("viewer was not opted into the meeter pool")
	}
	// Opting in twice must not fail or duplicate.
	eng.HandleUpdate(ctx, CallbackInput(10, 0, "cb", "viewer", "back"))
	sess.State = string(StateEventMenu)
	eng.HandleUpdate(ctx, CallbackInput(10, 0, "cb", "viewer", "meet"))
	meeters, _ := dir.Meeters(ctx, 1)
	count := 0
	for _, id := range meeters {
		if id == 10 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("viewer appears %d times in the pool", count)
	}
}
