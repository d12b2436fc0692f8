// Package telegram wraps the Bot API client behind the narrow surface
// the workflow engine consumes: sending and copying media, membership
// lookups, invite links and file downloads.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Chat member statuses reported by the platform. A user with status
// left or kicked does not count as a channel member.
const (
	StatusLeft   = "left"
	StatusKicked = "kicked"
)

// Button is one inline keyboard button. Exactly one of URL and
// CallbackData should be set.
type Button struct {
	Text         string
	URL          string
	CallbackData string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// URLButton builds a link button.
func URLButton(text, url string) Button {
	return Button{Text: text, URL: url}
}

// DataButton builds a callback button.
func DataButton(text, data string) Button {
	return Button{Text: text, CallbackData: data}
}

// Client is the production Bot API client.
type Client struct {
	api  *tgbotapi.BotAPI
	http *http.Client
}

// New connects to the Bot API and verifies the token.
func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}

	return &Client{
		api:  api,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Username returns the bot's own username, used to build deep links.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Updates returns the long-polling update channel.
func (c *Client) Updates(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return c.api.GetUpdatesChan(u)
}

// StopPolling shuts the update channel down.
func (c *Client) StopPolling() {
	c.api.StopReceivingUpdates()
}

// SendText delivers a Markdown-formatted text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	_, err := c.SendTextID(ctx, chatID, text, kb)
	return err
}

// SendTextID is SendText returning the id of the sent message, for
// callers that edit it later.
func (c *Client) SendTextID(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup := toMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendMedia delivers a stored video or photo by its platform file id.
func (c *Client) SendMedia(ctx context.Context, chatID int64, kind, fileID, caption string, kb Keyboard) error {
	var chattable tgbotapi.Chattable

	switch kind {
	case "photo":
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
		photo.Caption = caption
		if markup := toMarkup(kb); markup != nil {
			photo.ReplyMarkup = markup
		}
		chattable = photo
	case "video":
		video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
		video.Caption = caption
		if markup := toMarkup(kb); markup != nil {
			video.ReplyMarkup = markup
		}
		chattable = video
	default:
		return fmt.Errorf("unsupported media kind %q", kind)
	}

	_, err := c.api.Send(chattable)
	return err
}

// SendPhotoUpload delivers raw image bytes as a fresh photo upload.
func (c *Client) SendPhotoUpload(ctx context.Context, chatID int64, name string, data []byte, caption string, kb Keyboard) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	if markup := toMarkup(kb); markup != nil {
		photo.ReplyMarkup = markup
	}
	_, err := c.api.Send(photo)
	return err
}

// CopyTo copies an existing message into another chat without the
// forwarded-from header. Returns the new message id.
func (c *Client) CopyTo(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error) {
	res, err := c.api.CopyMessage(tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID))
	if err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

// EditText replaces the text of a previously sent message.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.api.Send(edit)
	return err
}

// AnswerCallback acknowledges a callback query so the client stops
// showing its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// MemberStatus looks up the user's membership status in a channel.
func (c *Client) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

// InviteLink fetches the primary invite link of a channel. The bot
// must be an admin of the channel for the link to be visible.
func (c *Client) InviteLink(ctx context.Context, chatID int64) (string, error) {
	chat, err := c.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return "", err
	}
	if chat.InviteLink == "" {
		return "", fmt.Errorf("chat %d has no visible invite link", chatID)
	}
	return chat.InviteLink, nil
}

// DownloadFile fetches the raw bytes of a stored file (thumbnails are
// small, so buffering in memory is fine).
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func toMarkup(kb Keyboard) interface{} {
	if len(kb) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
			}
		}
		rows = append(rows, buttons)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return markup
}
