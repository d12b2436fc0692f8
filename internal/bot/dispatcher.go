// Package bot routes inbound Telegram updates to the workflow engine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rajcricket/Free-Donuts/internal/config"
	"github.com/rajcricket/Free-Donuts/internal/db"
	"github.com/rajcricket/Free-Donuts/internal/db/models"
	"github.com/rajcricket/Free-Donuts/internal/db/repository"
	"github.com/rajcricket/Free-Donuts/internal/linkcodec"
	"github.com/rajcricket/Free-Donuts/internal/metrics"
	"github.com/rajcricket/Free-Donuts/internal/service"
	"github.com/rajcricket/Free-Donuts/internal/telegram"
	"github.com/rajcricket/Free-Donuts/pkg/logger"
)

const browsePrefix = "browse_"

// Chat extends the workflow's chat surface with the message-editing
// and callback-acknowledging calls only the dispatcher needs.
type Chat interface {
	service.ChatClient
	SendTextID(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Dispatcher owns the update loop: every inbound message or callback
// is routed through the gate, collector, classifier and broadcaster.
type Dispatcher struct {
	chat       Chat
	cfg        *config.Config
	files      repository.FileRepository
	users      repository.UserRepository
	gate       *service.SubscriptionGate
	collector  *service.BatchCollector
	classifier *service.Classifier
	broadcast  *service.BroadcastEngine
}

// New creates a Dispatcher.
func New(
	chat Chat,
	cfg *config.Config,
	files repository.FileRepository,
	users repository.UserRepository,
	gate *service.SubscriptionGate,
	collector *service.BatchCollector,
	classifier *service.Classifier,
	broadcast *service.BroadcastEngine,
) *Dispatcher {
	return &Dispatcher{
		chat:       chat,
		cfg:        cfg,
		files:      files,
		users:      users,
		gate:       gate,
		collector:  collector,
		classifier: classifier,
		broadcast:  broadcast,
	}
}

// Run consumes updates until the channel closes or the context is
// cancelled. Updates are handled sequentially; only broadcasts run in
// their own goroutine so the loop stays responsive.
func (d *Dispatcher) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			d.handleUpdate(ctx, update)
		}
	}
}

func (d *Dispatcher) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			d.handleStart(ctx, msg)
		case "batch":
			d.ownerOnly(ctx, msg, d.handleBatch)
		case "broadcast":
			d.ownerOnly(ctx, msg, d.handleBroadcast)
		case "stats":
			d.ownerOnly(ctx, msg, d.handleStats)
		}
		return
	}

	if msg.Video != nil || len(msg.Photo) > 0 {
		// Uploads from anyone but the owner are ignored.
		if msg.From.ID == d.cfg.Telegram.OwnerID {
			d.handleUpload(ctx, msg)
		}
	}
}

func (d *Dispatcher) ownerOnly(ctx context.Context, msg *tgbotapi.Message, fn func(context.Context, *tgbotapi.Message)) {
	if msg.From.ID != d.cfg.Telegram.OwnerID {
		return
	}
	fn(ctx, msg)
}

// handleStart serves a deep link: gate first, then payload dispatch.
func (d *Dispatcher) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	payload := msg.CommandArguments()

	if err := d.users.AddUser(ctx, userID); err != nil {
		logger.Log.Warn("could not record user", zap.Int64("user", userID), zap.Error(err))
	}

	if result := d.gate.Check(ctx, userID); !result.Satisfied {
		if err := d.gate.PromptBlocked(ctx, chatID, payload, result.Missing); err != nil {
			logger.Log.Warn("could not send gate prompt", zap.Error(err))
		}
		return
	}

	switch {
	case payload == "" || payload == "start":
		d.reply(ctx, chatID, "👋 *Welcome!*\n\nOpen a shared link to view its content, or check our public channel for more.")
	case strings.HasPrefix(payload, browsePrefix):
		d.serveBrowse(ctx, chatID, payload)
	default:
		d.serveToken(ctx, chatID, payload)
	}
}

func (d *Dispatcher) serveToken(ctx context.Context, chatID int64, token string) {
	id, err := linkcodec.Decode(token)
	if err != nil {
		d.reply(ctx, chatID, "❌ Invalid Link or File.")
		return
	}

	file, err := d.files.GetFileByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			d.reply(ctx, chatID, "❌ *File not found.* It might have been deleted.")
			return
		}
		logger.Log.Error("file lookup failed", zap.Int64("file", id), zap.Error(err))
		d.reply(ctx, chatID, "❌ Something went wrong. Please try again later.")
		return
	}

	d.serveFile(ctx, chatID, file)
}

// serveBrowse resolves browse_<product>_<flavor> to one random matching
// record.
func (d *Dispatcher) serveBrowse(ctx context.Context, chatID int64, payload string) {
	parts := strings.SplitN(strings.TrimPrefix(payload, browsePrefix), "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		d.reply(ctx, chatID, "❌ Invalid Link or File.")
		return
	}

	file, err := d.files.GetRandomFile(ctx, parts[0], parts[1])
	if err != nil {
		if db.IsNotFound(err) {
			d.reply(ctx, chatID, "❌ Nothing here yet. Check back later!")
			return
		}
		logger.Log.Error("random lookup failed", zap.Error(err))
		d.reply(ctx, chatID, "❌ Something went wrong. Please try again later.")
		return
	}

	d.serveFile(ctx, chatID, file)
}

func (d *Dispatcher) serveFile(ctx context.Context, chatID int64, file *models.File) {
	if err := d.chat.SendMedia(ctx, chatID, file.FileType, file.FileID, file.Caption, nil); err != nil {
		logger.Log.Error("could not deliver file",
			zap.Int64("file", file.ID),
			zap.Error(err),
		)
		d.reply(ctx, chatID, "❌ Something went wrong delivering the file.")
		return
	}

	metrics.FilesServed.Inc()
	if err := d.files.IncrementViews(ctx, file.ID); err != nil {
		logger.Log.Warn("could not bump view counter",
			zap.Int64("file", file.ID),
			zap.Error(err),
		)
	}
}

// handleUpload archives the owner's media, persists a record and feeds
// the batch collector.
func (d *Dispatcher) handleUpload(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	ackID, err := d.chat.SendTextID(ctx, chatID, "⏳ *Processing...*", nil)
	if err != nil {
		logger.Log.Warn("could not send upload ack", zap.Error(err))
	}

	edit := func(text string) {
		if ackID == 0 {
			d.reply(ctx, chatID, text)
			return
		}
		if err := d.chat.EditText(ctx, chatID, ackID, text); err != nil {
			logger.Log.Warn("could not edit upload ack", zap.Error(err))
		}
	}

	// Mirror the raw upload into the storage channel before anything
	// else, so the media survives even if the rest fails.
	if d.cfg.Telegram.ArchiveChannel != 0 {
		if _, err := d.chat.CopyTo(ctx, d.cfg.Telegram.ArchiveChannel, chatID, msg.MessageID); err != nil {
			edit(fmt.Sprintf("❌ Error saving to DB Channel: %v", err))
			return
		}
	}

	fileID, fileType, thumbID, ok := extractMedia(msg)
	if !ok {
		edit("❌ File type not supported.")
		return
	}

	file := models.NewFile(fileID, fileType, msg.Caption, thumbID)
	if err := d.files.CreateFile(ctx, file); err != nil {
		edit(fmt.Sprintf("❌ Database Error: %v", err))
		return
	}

	link := service.DeepLink(d.chat.Username(), linkcodec.Encode(file.ID))
	edit(fmt.Sprintf("✅ *File Saved!*\n\n🆔 DB ID: `%d`\n🔗 Link: `%s`", file.ID, link))

	outcome, err := d.collector.Add(ctx, msg.From.ID, file.ID)
	if err != nil {
		d.reply(ctx, chatID, fmt.Sprintf("❌ Batch error: %v", err))
		return
	}

	if !outcome.Ready {
		d.reply(ctx, chatID, fmt.Sprintf("📦 Collected %d/%d. Keep them coming.", outcome.Collected, outcome.Expected))
		return
	}

	if err := d.classifier.PromptProduct(ctx, chatID, outcome.Ref); err != nil {
		logger.Log.Warn("could not send classification prompt", zap.Error(err))
	}
}

func extractMedia(msg *tgbotapi.Message) (fileID, fileType, thumbID string, ok bool) {
	switch {
	case msg.Video != nil:
		fileID = msg.Video.FileID
		fileType = models.FileTypeVideo
		if msg.Video.Thumbnail != nil {
			thumbID = msg.Video.Thumbnail.FileID
		}
		return fileID, fileType, thumbID, true
	case len(msg.Photo) > 0:
		// The last entry is the highest resolution.
		best := msg.Photo[len(msg.Photo)-1]
		return best.FileID, models.FileTypePhoto, best.FileID, true
	default:
		return "", "", "", false
	}
}

// handleBatch opens a batch of the given size for the owner.
func (d *Dispatcher) handleBatch(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		d.reply(ctx, msg.Chat.ID, "Usage: `/batch <count>`, where count is a positive number.")
		return
	}

	abandoned, err := d.collector.Start(ctx, msg.From.ID, n)
	if err != nil {
		d.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ Could not open batch: %v", err))
		return
	}

	text := fmt.Sprintf("🧺 Batch opened. Send %d files to fill it.", n)
	if abandoned > 0 {
		text += fmt.Sprintf("\n⚠️ %d unfinished batch(es) were abandoned.", abandoned)
	}
	d.reply(ctx, msg.Chat.ID, text)
}

func (d *Dispatcher) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	count, err := d.users.CountUsers(ctx)
	if err != nil {
		d.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ Could not read user count: %v", err))
		return
	}
	d.reply(ctx, msg.Chat.ID, fmt.Sprintf("👥 *Known users:* %d", count))
}

// handleBroadcast fans the replied-to message out to every known user.
// The fan-out runs in its own goroutine so the dispatcher keeps
// serving other users while it is in flight.
func (d *Dispatcher) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		d.reply(ctx, msg.Chat.ID, "Usage: reply to the message you want to broadcast with `/broadcast`.")
		return
	}

	chatID := msg.Chat.ID
	sourceID := msg.ReplyToMessage.MessageID
	d.reply(ctx, chatID, "📣 Broadcast started. You will get a report when it finishes.")

	go func() {
		report, err := d.broadcast.Run(ctx, chatID, sourceID)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Error("broadcast aborted", zap.Error(err))
		}
		if report == nil {
			d.reply(ctx, chatID, fmt.Sprintf("❌ Broadcast failed: %v", err))
			return
		}

		text := fmt.Sprintf(
			"📊 *Broadcast report*\n\nTotal: %d\n✅ Delivered: %d\n🚫 Blocked (removed): %d\n⚠️ Failed: %d",
			report.Total, report.Success, report.Blocked, report.Failed,
		)
		if err != nil {
			text += "\n\n⏹ Stopped early: " + err.Error()
		}
		d.reply(ctx, chatID, text)
	}()
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil {
		return
	}

	if cq.From.ID != d.cfg.Telegram.OwnerID {
		if err := d.chat.AnswerCallback(ctx, cq.ID, "Not allowed."); err != nil {
			logger.Log.Warn("could not answer callback", zap.Error(err))
		}
		return
	}

	if err := d.classifier.HandleCallback(ctx, cq.Message.Chat.ID, cq.Data); err != nil {
		logger.Log.Error("callback handling failed",
			zap.String("data", cq.Data),
			zap.Error(err),
		)
		d.reply(ctx, cq.Message.Chat.ID, "❌ Could not process that selection.")
	}

	if err := d.chat.AnswerCallback(ctx, cq.ID, ""); err != nil {
		logger.Log.Warn("could not answer callback", zap.Error(err))
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if err := d.chat.SendText(ctx, chatID, text, nil); err != nil {
		logger.Log.Warn("could not send reply", zap.Int64("chat", chatID), zap.Error(err))
	}
}
