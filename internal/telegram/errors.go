package telegram

import (
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// IsBlocked reports whether a delivery error means the user is
// permanently unreachable: they blocked the bot, deactivated their
// account, or never started a chat with the bot.
func IsBlocked(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.Code == 403 {
		return true
	}

	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "deactivated") ||
		strings.Contains(msg, "chat not found")
}

// RetryAfter extracts the platform's rate-limit backoff hint. The
// second return value is false when the error is not a rate limit.
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	if apiErr.Code != 429 && apiErr.RetryAfter == 0 {
		return 0, false
	}

	after := apiErr.RetryAfter
	if after <= 0 {
		after = 1
	}
	return time.Duration(after) * time.Second, true
}
