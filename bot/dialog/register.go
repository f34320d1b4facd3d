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
)

// The profile wizard walks through six questions in fixed order. Each answer
// is persisted immediately, so an abandoned wizard keeps what was entered and
// resumes from the profile as-is next time.

func (e *Engine) emptyUser(in Input) models.User {
	return models.User{
		TelegramID:   in.ChatID,
		Nickname:     in.Username,
		Registration: models.RegistrationIncomplete,
	}
}

// startWizard begins the profile questions for the viewed event.
func (e *Engine) startWizard(ctx context.Context, in Input, _ *session.Session) (State, error) {
	if _, err := e.dir.UserByTelegramID(ctx, in.ChatID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("load user: %w", err)
		}
		if err := e.dir.CreateUser(ctx, e.emptyUser(in)); err != nil {
			return "", fmt.Errorf("create user: %w", err)
		}
	}
	if err := e.send(ctx, in.ChatID, "Let's get to know each other. What is your full name?", nil); err != nil {
		return "", err
	}
	return StateFullname, nil
}

func (e *Engine) saveField(ctx context.Context, chatID int64, set func(*models.User)) error {
	u, err := e.dir.UserByTelegramID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	set(&u)
	if err := e.dir.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (e *Engine) handleFullname(ctx context.Context, in Input, _ *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	name := strings.TrimSpace(in.Text)
	if name == "" {
		return "", nil
	}
	if err := e.saveField(ctx, in.ChatID, func(u *models.User) { u.Fullname = name }); err != nil {
		return "", err
	}
	if err := e.send(ctx, in.ChatID, "How old are you?", nil); err != nil {
		return "", err
	}
	return StateAge, nil
}

func (e *Engine) handleAge(ctx context.Context, in Input, _ *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	age, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || age <= 0 {
		if err := e.send(ctx, in.ChatID, "Please send your age as a number.", nil); err != nil {
			return "", err
		}
		return "", nil
	}
	if err := e.saveField(ctx, in.ChatID, func(u *models.User) { u.Age = age }); err != nil {
		return "", err
	}
	if err := e.send(ctx, in.ChatID, "What do you do for a living?", nil); err != nil {
		return "", err
	}
	return StateActivity, nil
}

func (e *Engine) handleActivity(ctx context.Context, in Input, _ *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	activity := strings.TrimSpace(in.Text)
	if activity == "" {
		return "", nil
	}
	if err := e.saveField(ctx, in.ChatID, func(u *models.User) { u.Activity = activity }); err != nil {
		return "", err
	}
	if err := e.send(ctx, in.ChatID, "What technologies do you work with?", nil); err != nil {
		return "", err
	}
	return StateStack, nil
}

func (e *Engine) handleStack(ctx context.Context, in Input, _ *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	stack := strings.TrimSpace(in.Text)
	if stack == "" {
		return "", nil
	}
	if err := e.saveField(ctx, in.ChatID, func(u *models.User) { u.Stack = stack }); err != nil {
		return "", err
	}
	if err := e.send(ctx, in.ChatID, "What are you into outside of work?", nil); err != nil {
		return "", err
	}
	return StateHobby, nil
}

func (e *Engine) handleHobby(ctx context.Context, in Input, _ *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	hobby := strings.TrimSpace(in.Text)
	if hobby == "" {
		return "", nil
	}
	if err := e.saveField(ctx, in.ChatID, func(u *models.User) { u.Hobby = hobby }); err != nil {
		return "", err
	}
	if err := e.send(ctx, in.ChatID, "And the last one: what brings you here?", nil); err != nil {
		return "", err
	}
	return StatePurpose, nil
}

// handlePurpose finishes the wizard: the profile is marked registered, the
// user joins the viewed event as a member and a networking participant, and
// the welcome screen comes back.
func (e *Engine) handlePurpose(ctx context.Context, in Input, sess *session.Session) (State, error) {
	if in.Kind != KindText {
		return "", nil
	}
	purpose := strings.TrimSpace(in.Text)
	if purpose == "" {
		return "", nil
	}
	err := e.saveField(ctx, in.ChatID, func(u *models.User) {
		u.Purpose = purpose
		u.Registration = models.RegistrationRegistered
		if u.Nickname == "" {
			u.Nickname = in.Username
		}
	})
	if err != nil {
		return "", err
	}

	if sess.CurrentEvent != 0 {
		if err := e.dir.AddMember(ctx, sess.CurrentEvent, in.ChatID); err != nil {
			return "", fmt.Errorf("add member: %w", err)
		}
		if err := e.dir.AddMeeter(ctx, sess.CurrentEvent, in.ChatID); err != nil {
			return "", fmt.Errorf("add meeter: %w", err)
		}
	}

	if err := e.send(ctx, in.ChatID, "Thanks, you are all set. See you at the event!", nil); err != nil {
		return "", err
	}
	if _, err := e.showStartMenu(ctx, in, sess); err != nil {
		return "", err
	}
	return StateStart, nil
}
