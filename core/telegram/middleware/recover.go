package middleware

import (
	"runtime/debug"

	"log/slog"

	"github.com/m3rciful/meetbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware keeps a panicking handler from taking the bot down. The
// offending update is logged with its chat and user so the broken dialogue
// step can be found; the chat itself keeps its session state untouched.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			var chatID, userID int64
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}
			if u := c.Sender(); u != nil {
				userID = u.ID
			}
			logger.TG.Error("panic recovered",
				slog.String("event", "tg.panic"),
				slog.Any("err", r),
				slog.Int64("chat_id", chatID),
				slog.Int64("user_id", userID),
				slog.Int("update_id", c.Update().ID),
				slog.String("stack", logger.SanitizeLimit(string(debug.Stack()), 4096)),
			)
		}()
		return next(c)
	}
}
