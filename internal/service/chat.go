// Package service implements the content workflow engine: the
// subscription gate, batch collector, classification protocol,
// distribution router and broadcast engine.
package service

import (
	"context"
	"fmt"

	"github.com/rajcricket/Free-Donuts/internal/telegram"
)

// ChatClient is the chat-platform surface the workflow consumes.
// *telegram.Client is the production implementation; tests substitute
// mocks.
type ChatClient interface {
	Username() string
	SendText(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) error
	SendMedia(ctx context.Context, chatID int64, kind, fileID, caption string, kb telegram.Keyboard) error
	SendPhotoUpload(ctx context.Context, chatID int64, name string, data []byte, caption string, kb telegram.Keyboard) error
	CopyTo(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
	InviteLink(ctx context.Context, chatID int64) (string, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// DeepLink builds the t.me URL that opens the bot with the given
// payload.
func DeepLink(username, payload string) string {
	if payload == "" {
		return fmt.Sprintf("https://t.me/%s", username)
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", username, payload)
}
