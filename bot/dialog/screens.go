package dialog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/meetbot/bot/models"
	"github.com/m3rciful/meetbot/bot/session"
	"github.com/m3rciful/meetbot/bot/storage"
	"github.com/m3rciful/meetbot/bot/transport"
)

// showStartMenu renders the welcome screen. It accepts any input, clears the
// viewed event and offers the nearest event as a shortcut when one exists.
func (e *Engine) showStartMenu(ctx context.Context, in Input, sess *session.Session) (State, error) {
	sess.CurrentEvent = 0

	var kb transport.Keyboard
	ev, err := e.dir.CurrentOrClosestEvent(ctx, e.now())
	switch {
	case err == nil:
		kb = append(kb, []transport.Button{{
			Text: ev.Title,
			Data: strconv.FormatInt(ev.ID, 10),
		}})
	case !errors.Is(err, storage.ErrNotFound):
		return "", fmt.Errorf("nearest event: %w", err)
	}
	kb = append(kb, []transport.Button{{Text: "Upcoming events", Data: cmdFutureEvents}})

	if u, err := e.dir.UserByTelegramID(ctx, in.ChatID); err == nil && u.IsAdmin {
		kb = append(kb, []transport.Button{{Text: "Create event", Data: cmdCreateEvent}})
	}

	text := "Hi! I am the conference assistant bot.\nPick an event to get started."
	if err := e.respond(ctx, in, text, kb, false); err != nil {
		return "", err
	}
	return StateMainMenu, nil
}

func (e *Engine) handleMainMenu(ctx context.Context, in Input, sess *session.Session) (State, error) {
	switch in.Kind {
	case KindEntity:
		sess.CurrentEvent = in.EntityID
		return e.showEvent(ctx, in, sess)
	case KindCommand:
		switch in.Command {
		case cmdFutureEvents:
			return e.showFutureEvents(ctx, in, sess)
		case cmdCreateEvent:
			sess.CurrentEvent = 0
			return e.promptEventTitle(ctx, in, sess)
		case cmdBack:
			return e.showStartMenu(ctx, in, sess)
		}
	}
	return "", nil
}

// showEvent renders one event page. The keyboard adapts to the viewer: talks
// are always listed, members of a running event can ask questions and meet
// people, organizers edit the event and everyone else may donate.
func (e *Engine) showEvent(ctx context.Context, in Input, sess *session.Session) (State, error) {
	ev, err := e.dir.EventByID(ctx, sess.CurrentEvent)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return e.showStartMenu(ctx, in, sess)
		}
		return "", fmt.Errorf("event %d: %w", sess.CurrentEvent, err)
	}

	member, err := e.dir.IsMember(ctx, ev.ID, in.ChatID)
	if err != nil {
		return "", fmt.Errorf("membership: %w", err)
	}
	organizer, err := e.dir.IsOrganizer(ctx, ev.ID, in.ChatID)
	if err != nil {
		return "", fmt.Errorf("organizers: %w", err)
	}

	var kb transport.Keyboard
	kb = append(kb, []transport.Button{{Text: "Talks", Data: cmdSpeechList}})
	if !member {
		kb = append(kb, []transport.Button{{Text: "Join the event", Data: cmdRegister}})
	}
	if member && ev.IsCurrent(e.now()) {
		kb = append(kb, []transport.Button{
			{Text: "Ask the speaker", Data: cmdAsk},
			{Text: "Meet people", Data: cmdMeet},
		})
	}
	if organizer {
		kb = append(kb, []transport.Button{{Text: "Edit", Data: cmdEdit}})
	} else {
		kb = append(kb, []transport.Button{{Text: "Support us", Data: cmdDonate}})
	}

	text := eventPage(ev)
	if ev.Image != "" {
		// Photo captions cannot be edited into a text message; drop the old
		// screen and post the photo fresh.
		if in.MessageID != 0 && in.Kind != KindText {
			_ = e.msgr.Delete(ctx, in.ChatID, in.MessageID)
		}
		kb = append(kb, []transport.Button{{Text: "< Back", Data: cmdBack}})
		if _, err := e.msgr.SendPhoto(ctx, in.ChatID, ev.Image, text, kb); err != nil {
			return "", err
		}
		return StateEventMenu, nil
	}
	if err := e.respond(ctx, in, text, kb, true); err != nil {
		return "", err
	}
	return StateEventMenu, nil
}

func eventPage(ev models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", ev.Title)
	if ev.HasSchedule() {
		fmt.Fprintf(&b, "%s — %s\n",
			ev.StartedAt.Format("02 Jan 15:04"),
			ev.FinishedAt.Format("02 Jan 15:04"))
	}
	if ev.Description != "" {
		b.WriteString("\n")
		b.WriteString(ev.Description)
	}
	return b.String()
}

func (e *Engine) handleEventMenu(ctx context.Context, in Input, sess *session.Session) (State, error) {
	if in.Kind != KindCommand {
		return "", nil
	}
	switch in.Command {
	case cmdSpeechList:
		return e.showSpeechList(ctx, in, sess)
	case cmdRegister:
		return e.startWizard(ctx, in, sess)
	case cmdAsk:
		return e.askQuestion(ctx, in, sess)
	case cmdMeet:
		return e.startMeeting(ctx, in, sess)
	case cmdEdit:
		return e.showEditMenu(ctx, in, sess)
	case cmdDonate:
		if err := e.payments.RequestDonation(ctx, in.ChatID, sess.CurrentEvent); err != nil {
			return "", fmt.Errorf("donation: %w", err)
		}
		return "", nil
	case cmdBack:
		return e.showStartMenu(ctx, in, sess)
	}
	return "", nil
}

func (e *Engine) showSpeechList(ctx context.Context, in Input, sess *session.Session) (State, error) {
	speeches, err := e.dir.SpeechesByEvent(ctx, sess.CurrentEvent)
	if err != nil {
		return "", fmt.Errorf("speeches: %w", err)
	}

	var b strings.Builder
	if len(speeches) == 0 {
		b.WriteString("The schedule is not published yet.")
	} else {
		b.WriteString("<b>Talks</b>\n")
		now := e.now()
		for _, s := range speeches {
			marker := ""
			if s.IsCurrent(now) {
				marker = " · now"
			}
			fmt.Fprintf(&b, "\n%s  <b>%s</b>%s\n", s.StartedAt.Format("15:04"), s.Title, marker)
			if s.Description != "" {
				fmt.Fprintf(&b, "%s\n", s.Description)
			}
		}
	}
	if err := e.respond(ctx, in, b.String(), nil, true); err != nil {
		return "", err
	}
	return StateSpeechList, nil
}

func (e *Engine) handleSpeechList(ctx context.Context, in Input, sess *session.Session) (State, error) {
	if in.Kind == KindCommand && in.Command == cmdBack {
		return e.showEvent(ctx, in, sess)
	}
	return "", nil
}

func (e *Engine) showFutureEvents(ctx context.Context, in Input, _ *session.Session) (State, error) {
	events, err := e.dir.FutureEvents(ctx, e.now())
	if err != nil {
		return "", fmt.Errorf("future events: %w", err)
	}

	text := "Upcoming events:"
	var kb transport.Keyboard
	if len(events) == 0 {
		text = "No upcoming events announced yet."
	}
	for _, ev := range events {
		kb = append(kb, []transport.Button{{
			Text: ev.Title,
			Data: strconv.FormatInt(ev.ID, 10),
		}})
	}
	if err := e.respond(ctx, in, text, kb, true); err != nil {
		return "", err
	}
	return StateFutureEvents, nil
}

func (e *Engine) handleFutureEvents(ctx context.Context, in Input, sess *session.Session) (State, error) {
	switch in.Kind {
	case KindEntity:
		sess.CurrentEvent = in.EntityID
		return e.showEvent(ctx, in, sess)
	case KindCommand:
		if in.Command == cmdBack {
			return e.showStartMenu(ctx, in, sess)
		}
	}
	return "", nil
}

// showEditMenu renders the organizer menu. The same screen serves as the
// landing point after a title or description edit.
func (e *Engine) showEditMenu(ctx context.Context, in Input, sess *session.Session) (State, error) {
	ev, err := e.dir.EventByID(ctx, sess.CurrentEvent)
	if err != nil {
		return "", fmt.Errorf("event %d: %w", sess.CurrentEvent, err)
	}

	kb := transport.Keyboard{
		{{Text: "Change title", Data: cmdEditTitle}},
		{{Text: "Change description", Data: cmdEditText}},
		{{Text: "Delete event", Data: cmdDelete}},
	}
	text := fmt.Sprintf("<b>%s</b>\nWhat do you want to change?", ev.Title)
	if e.adminURL != "" {
		text += fmt.Sprintf("\n\nSpeeches and organizers are managed in the <a href=\"%s\">admin panel</a>.", e.adminURL)
	}
	if err := e.respond(ctx, in, text, kb, true); err != nil {
		return "", err
	}
	return StateEditEvent, nil
}

func (e *Engine) handleEditEvent(ctx context.Context, in Input, sess *session.Session) (State, error) {
	if in.Kind != KindCommand {
		return "", nil
	}
	switch in.Command {
	case cmdEditTitle:
		return e.promptEventTitle(ctx, in, sess)
	case cmdEditText:
		sess.MsgToDelete = in.MessageID
		if err := e.send(ctx, in.ChatID, "Send the new description.", nil); err != nil {
			return "", err
		}
		return StateEventText, nil
	case cmdDelete:
		if err := e.dir.DeleteEvent(ctx, sess.CurrentEvent); err != nil {
			return "", fmt.Errorf("delete event: %w", err)
		}
		if in.CallbackID != "" {
			_ = e.msgr.AnswerCallback(ctx, in.CallbackID, "Event deleted")
		}
		return e.showStartMenu(ctx, in, sess)
	case cmdBack:
		return e.showEvent(ctx, in, sess)
	}
	return "", nil
}

// promptEventTitle asks for a title, either for a new event (CurrentEvent
// still 0) or for renaming the viewed one.
func (e *Engine) promptEventTitle(ctx context.Context, in Input, sess *session.Session) (State, error) {
	sess.MsgToDelete = in.MessageID
	prompt := "Send the event title."
	if sess.CurrentEvent != 0 {
		prompt = "Send the new title."
	}
	if err := e.send(ctx, in.ChatID, prompt, nil); err != nil {
		return "", err
	}
	return StateEventTitle, nil
}

func (e *Engine) handleEventTitle(ctx context.Context, in Input, sess *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	title := strings.TrimSpace(in.Text)
	if title == "" {
		return "", nil
	}

	if sess.CurrentEvent == 0 {
		id, err := e.dir.CreateEvent(ctx, title)
		if err != nil {
			return "", fmt.Errorf("create event: %w", err)
		}
		sess.CurrentEvent = id
	} else if err := e.dir.UpdateEventTitle(ctx, sess.CurrentEvent, title); err != nil {
		return "", fmt.Errorf("update title: %w", err)
	}

	if id := sess.TakeMsgToDelete(); id != 0 {
		_ = e.msgr.Delete(ctx, in.ChatID, id)
	}
	return e.showEditMenu(ctx, in, sess)
}

func (e *Engine) handleEventText(ctx context.Context, in Input, sess *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	desc := strings.TrimSpace(in.Text)
	if desc == "" {
		return "", nil
	}
	if err := e.dir.UpdateEventDescription(ctx, sess.CurrentEvent, desc); err != nil {
		return "", fmt.Errorf("update description: %w", err)
	}
	if id := sess.TakeMsgToDelete(); id != 0 {
		_ = e.msgr.Delete(ctx, in.ChatID, id)
	}
	return e.showEditMenu(ctx, in, sess)
}

// askQuestion opens the question prompt when a talk is running right now.
func (e *Engine) askQuestion(ctx context.Context, in Input, sess *session.Session) (State, error) {
	speech, err := e.dir.CurrentEventSpeech(ctx, sess.CurrentEvent, e.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if in.CallbackID != "" {
				_ = e.msgr.AnswerCallback(ctx, in.CallbackID, "No talk is running right now.")
			}
			return "", nil
		}
		return "", fmt.Errorf("current speech: %w", err)
	}

	sess.SpeakerID = speech.SpeakerID
	sess.MsgToDelete = in.MessageID
	speakerName := speech.Title
	if speaker, err := e.dir.UserByTelegramID(ctx, speech.SpeakerID); err == nil && speaker.Fullname != "" {
		speakerName = speaker.Fullname
	}
	text := fmt.Sprintf("The current speaker is <b>%s</b>. Type your question and I will pass it on.", speakerName)
	if err := e.send(ctx, in.ChatID, text, nil); err != nil {
		return "", err
	}
	return StateQuestion, nil
}

func (e *Engine) handleQuestion(ctx context.Context, in Input, sess *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	question := strings.TrimSpace(in.Text)
	if question == "" {
		return "", nil
	}

	speaker := sess.TakeSpeakerID()
	if speaker != 0 {
		from := in.Username
		if from == "" {
			from = "someone in the audience"
		} else {
			from = "@" + from
		}
		text := fmt.Sprintf("Question from %s:\n\n%s", from, question)
		if err := e.send(ctx, speaker, text, nil); err != nil {
			return "", fmt.Errorf("forward question: %w", err)
		}
	}
	if id := sess.TakeMsgToDelete(); id != 0 {
		_ = e.msgr.Delete(ctx, in.ChatID, id)
	}
	if err := e.send(ctx, in.ChatID, "Sent! The speaker will see it shortly.", nil); err != nil {
		return "", err
	}
	return e.showEvent(ctx, in, sess)
}
