package telegram

import (
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "forbidden blocked by user",
			err:  &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
			want: true,
		},
		{
			name: "deactivated account",
			err:  &tgbotapi.Error{Code: 400, Message: "Bad Request: user is deactivated"},
			want: true,
		},
		{
			name: "chat not found",
			err:  &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"},
			want: true,
		},
		{
			name: "rate limit is not blocked",
			err: &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5",
				ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 5}},
			want: false,
		},
		{
			name: "plain error is not blocked",
			err:  errors.New("network down"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlocked(tt.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	t.Run("rate limit with hint", func(t *testing.T) {
		err := &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 7",
			ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7}}

		d, ok := RetryAfter(err)
		assert.True(t, ok)
		assert.Equal(t, 7*time.Second, d)
	})

	t.Run("rate limit without hint defaults to one second", func(t *testing.T) {
		err := &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}

		d, ok := RetryAfter(err)
		assert.True(t, ok)
		assert.Equal(t, time.Second, d)
	})

	t.Run("other api error", func(t *testing.T) {
		err := &tgbotapi.Error{Code: 400, Message: "Bad Request"}

		_, ok := RetryAfter(err)
		assert.False(t, ok)
	})

	t.Run("plain error", func(t *testing.T) {
		_, ok := RetryAfter(errors.New("boom"))
		assert.False(t, ok)
	})
}
