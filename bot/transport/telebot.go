package transport

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/meetbot/core/telegram/keyboard"
	"github.com/m3rciful/meetbot/core/telegram/sender"
)

// TelebotMessenger implements Messenger on top of a live telebot instance.
// Fire-and-forget calls (deletes, callback answers) are queued on the async
// dispatcher when one is provided; calls whose result the caller needs stay
// synchronous.
type TelebotMessenger struct {
	bot        *tele.Bot
	dispatcher *sender.Dispatcher
}

// NewTelebotMessenger wraps a bot and an optional outbound dispatcher.
func NewTelebotMessenger(bot *tele.Bot, d *sender.Dispatcher) *TelebotMessenger {
	return &TelebotMessenger{bot: bot, dispatcher: d}
}

var _ Messenger = (*TelebotMessenger)(nil)

// Send implements Messenger.
func (t *TelebotMessenger) Send(_ context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	msg, err := t.bot.Send(tele.ChatID(chatID), text, sendOptions(kb))
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return msg.ID, nil
}

// Edit implements Messenger.
func (t *TelebotMessenger) Edit(_ context.Context, chatID int64, msgID int, text string, kb Keyboard) error {
	ref := tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: chatID}
	if _, err := t.bot.Edit(ref, text, sendOptions(kb)); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// Delete implements Messenger.
func (t *TelebotMessenger) Delete(ctx context.Context, chatID int64, msgID int) error {
	ref := tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: chatID}
	return t.async(ctx, "deleteMessage", func() error {
		return t.bot.Delete(ref)
	})
}

// SendPhoto implements Messenger. The image reference is a URL or Telegram
// file id; bytes never pass through this process.
func (t *TelebotMessenger) SendPhoto(_ context.Context, chatID int64, imageRef, caption string, kb Keyboard) (int, error) {
	photo := &tele.Photo{File: tele.FromURL(imageRef), Caption: caption}
	msg, err := t.bot.Send(tele.ChatID(chatID), photo, sendOptions(kb))
	if err != nil {
		return 0, fmt.Errorf("send photo: %w", err)
	}
	return msg.ID, nil
}

// AnswerCallback implements Messenger.
func (t *TelebotMessenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return t.async(ctx, "answerCallbackQuery", func() error {
		return t.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	})
}

func (t *TelebotMessenger) async(ctx context.Context, action string, run func() error) error {
	if t.dispatcher == nil {
		return run()
	}
	if err := t.dispatcher.Enqueue(ctx, action, run); err != nil {
		// Queue saturated or closed: degrade to a synchronous call.
		return run()
	}
	return nil
}

func sendOptions(kb Keyboard) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if len(kb) > 0 {
		rows := make([][]keyboard.InlineBtn, len(kb))
		for i, row := range kb {
			btns := make([]keyboard.InlineBtn, len(row))
			for j, b := range row {
				btns[j] = keyboard.InlineBtn{Text: b.Text, Data: b.Data}
			}
			rows[i] = btns
		}
		opts.ReplyMarkup = keyboard.InlineButtonsRows(rows...)
	}
	return opts
}
