package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rajcricket/Free-Donuts/internal/db/repository"
	"github.com/rajcricket/Free-Donuts/internal/metrics"
	"github.com/rajcricket/Free-Donuts/internal/telegram"
	"github.com/rajcricket/Free-Donuts/pkg/logger"
)

// Report is the accounting of one finished (or aborted) broadcast.
// For a run that completes, Success + Blocked + Failed == Total for
// the user set snapshotted at start.
type Report struct {
	ID       uuid.UUID
	Total    int
	Success  int
	Blocked  int
	Failed   int
	Started  time.Time
	Finished time.Time
}

// BroadcastEngine fans one message out to every known user under rate
// limiting, pruning users who have become unreachable.
type BroadcastEngine struct {
	chat          ChatClient
	users         repository.UserRepository
	limiter       *rate.Limiter
	progressEvery int
	events        *MessagePublisher // optional
}

// NewBroadcastEngine creates a BroadcastEngine. ratePerSecond and
// burst bound the self-imposed send rate, independent of any platform
// signals.
func NewBroadcastEngine(chat ChatClient, users repository.UserRepository, ratePerSecond float64, burst, progressEvery int) *BroadcastEngine {
	if progressEvery <= 0 {
		progressEvery = 100
	}
	return &BroadcastEngine{
		chat:          chat,
		users:         users,
		limiter:       rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		progressEvery: progressEvery,
	}
}

// SetEventPublisher wires the optional ops event publisher.
func (e *BroadcastEngine) SetEventPublisher(events *MessagePublisher) {
	e.events = events
}

// Run copies the source message to every user known at start. Per-user
// outcomes: delivered, permanently unreachable (user removed from the
// store, counted blocked), rate-limited (whole broadcast suspended for
// the indicated duration, then one retry), anything else a failure.
// The context is checked between sends, so cancellation aborts with
// the partial report and ctx.Err().
func (e *BroadcastEngine) Run(ctx context.Context, fromChatID int64, messageID int) (*Report, error) {
	snapshot, err := e.users.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:      uuid.New(),
		Total:   len(snapshot),
		Started: time.Now(),
	}

	logger.Log.Info("broadcast started",
		zap.String("broadcast", report.ID.String()),
		zap.Int("users", report.Total),
	)

	for i, userID := range snapshot {
		if err := e.limiter.Wait(ctx); err != nil {
			report.Finished = time.Now()
			return report, err
		}

		e.deliver(ctx, report, userID, fromChatID, messageID)

		if (i+1)%e.progressEvery == 0 {
			logger.Log.Info("broadcast progress",
				zap.String("broadcast", report.ID.String()),
				zap.Int("done", i+1),
				zap.Int("total", report.Total),
				zap.Int("success", report.Success),
				zap.Int("blocked", report.Blocked),
				zap.Int("failed", report.Failed),
			)
		}
	}

	report.Finished = time.Now()

	logger.Log.Info("broadcast finished",
		zap.String("broadcast", report.ID.String()),
		zap.Int("total", report.Total),
		zap.Int("success", report.Success),
		zap.Int("blocked", report.Blocked),
		zap.Int("failed", report.Failed),
	)

	if e.events != nil {
		event := BroadcastFinishedEvent{
			BroadcastID: report.ID.String(),
			Total:       report.Total,
			Success:     report.Success,
			Blocked:     report.Blocked,
			Failed:      report.Failed,
			At:          report.Finished,
		}
		if err := e.events.Publish(ctx, "broadcast.finished", event); err != nil {
			logger.Log.Warn("could not publish ops event", zap.Error(err))
		}
	}

	return report, nil
}

func (e *BroadcastEngine) deliver(ctx context.Context, report *Report, userID, fromChatID int64, messageID int) {
	_, err := e.chat.CopyTo(ctx, userID, fromChatID, messageID)
	if err == nil {
		metrics.BroadcastDeliveries.WithLabelValues("success").Inc()
		report.Success++
		return
	}

	if telegram.IsBlocked(err) {
		e.prune(ctx, userID)
		metrics.BroadcastDeliveries.WithLabelValues("blocked").Inc()
		report.Blocked++
		return
	}

	if after, ok := telegram.RetryAfter(err); ok {
		logger.Log.Warn("broadcast rate limited, suspending",
			zap.Duration("retry_after", after),
			zap.Int64("user", userID),
		)
		select {
		case <-time.After(after):
		case <-ctx.Done():
			metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
			report.Failed++
			return
		}

		// Retry exactly once for this user.
		if _, err := e.chat.CopyTo(ctx, userID, fromChatID, messageID); err == nil {
			metrics.BroadcastDeliveries.WithLabelValues("success").Inc()
			report.Success++
			return
		} else if telegram.IsBlocked(err) {
			e.prune(ctx, userID)
			metrics.BroadcastDeliveries.WithLabelValues("blocked").Inc()
			report.Blocked++
			return
		}
		metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
		report.Failed++
		return
	}

	logger.Log.Warn("broadcast delivery failed",
		zap.Int64("user", userID),
		zap.Error(err),
	)
	metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
	report.Failed++
}

func (e *BroadcastEngine) prune(ctx context.Context, userID int64) {
	if err := e.users.RemoveUser(ctx, userID); err != nil {
		logger.Log.Warn("could not remove unreachable user",
			zap.Int64("user", userID),
			zap.Error(err),
		)
	}
}
