package dialog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/m3rciful/meetbot/bot/session"
	"github.com/m3rciful/meetbot/bot/storage"
	"github.com/m3rciful/meetbot/bot/transport"
)

// startMeeting handles the "meet people" button. Visitors without a complete
// profile are routed through the wizard first; everyone else is opted into
// the event's meeter pool and shown a candidate.
func (e *Engine) startMeeting(ctx context.Context, in Input, sess *session.Session) (State, error) {
	u, err := e.dir.UserByTelegramID(ctx, in.ChatID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("load user: %w", err)
	}
	if err != nil || !u.Registered() {
		return e.startWizard(ctx, in, sess)
	}
	if err := e.dir.AddMeeter(ctx, sess.CurrentEvent, in.ChatID); err != nil {
		return "", fmt.Errorf("add meeter: %w", err)
	}
	return e.offerCandidate(ctx, in, sess)
}

// offerCandidate draws one random attendee the viewer has not seen this round
// and renders their profile card. An empty pool is terminal for the round:
// the exclusion set stays as it is, so "show another" keeps coming up empty
// until new people opt in.
func (e *Engine) offerCandidate(ctx context.Context, in Input, sess *session.Session) (State, error) {
	meeters, err := e.dir.Meeters(ctx, sess.CurrentEvent)
	if err != nil {
		return "", fmt.Errorf("meeters: %w", err)
	}

	pool := meeters[:0:0]
	for _, id := range meeters {
		if id == in.ChatID || sess.Excluded(id) {
			continue
		}
		pool = append(pool, id)
	}

	if len(pool) == 0 {
		kb := transport.Keyboard{{{Text: "Try again", Data: cmdNext}}}
		if err := e.respond(ctx, in, "No one else is available right now. Check back a bit later!", kb, false); err != nil {
			return "", err
		}
		return StateMeeting, nil
	}

	candidateID := pool[e.pick(len(pool))]
	candidate, err := e.dir.UserByTelegramID(ctx, candidateID)
	if err != nil {
		return "", fmt.Errorf("candidate %d: %w", candidateID, err)
	}
	sess.Exclude(candidateID)

	text := fmt.Sprintf("<b>%s</b>\n%s\n\nLooking for: %s",
		candidate.Fullname, candidate.Activity, candidate.Purpose)
	kb := transport.Keyboard{{
		{Text: "Want to talk", Data: strconv.FormatInt(candidateID, 10)},
		{Text: "Show another", Data: cmdNext},
	}}
	if err := e.respond(ctx, in, text, kb, false); err != nil {
		return "", err
	}
	return StateMeeting, nil
}

func (e *Engine) handleMeeting(ctx context.Context, in Input, sess *session.Session) (State, error) {
	switch in.Kind {
	case KindEntity:
		candidate, err := e.dir.UserByTelegramID(ctx, in.EntityID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", nil
			}
			return "", fmt.Errorf("candidate %d: %w", in.EntityID, err)
		}
		text := fmt.Sprintf("Great! You can reach %s at @%s.", candidate.Fullname, candidate.Nickname)
		if candidate.Nickname == "" {
			text = fmt.Sprintf("%s has no public handle; ask the organizers to introduce you.", candidate.Fullname)
		}
		if err := e.send(ctx, in.ChatID, text, nil); err != nil {
			return "", err
		}
		return "", nil
	case KindCommand:
		if in.Command == cmdNext {
			return e.offerCandidate(ctx, in, sess)
		}
	}
	return "", nil
}
