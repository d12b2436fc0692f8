package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rajcricket/Free-Donuts/internal/config"
	"github.com/rajcricket/Free-Donuts/internal/metrics"
	"github.com/rajcricket/Free-Donuts/internal/telegram"
	"github.com/rajcricket/Free-Donuts/pkg/logger"
)

// GateResult is the outcome of a subscription-gate evaluation.
type GateResult struct {
	Satisfied bool
	Missing   []int64 // channels the user still has to join
}

// SubscriptionGate checks that a user is a member of every required
// backup channel before content is served.
type SubscriptionGate struct {
	chat ChatClient
	cfg  config.GateConfig
}

// NewSubscriptionGate creates a SubscriptionGate.
func NewSubscriptionGate(chat ChatClient, cfg config.GateConfig) *SubscriptionGate {
	return &SubscriptionGate{chat: chat, cfg: cfg}
}

// Check evaluates every required channel independently. A user is
// blocked when any lookup explicitly reports left or kicked. A lookup
// failure counts as satisfied when FailOpen is set, so a broken
// channel configuration degrades to open access instead of locking
// everyone out.
func (g *SubscriptionGate) Check(ctx context.Context, userID int64) GateResult {
	var missing []int64

	for _, channel := range g.cfg.RequiredChannels {
		status, err := g.chat.MemberStatus(ctx, channel, userID)
		if err != nil {
			logger.Log.Warn("membership lookup failed",
				zap.Int64("channel", channel),
				zap.Int64("user", userID),
				zap.Error(err),
			)
			if !g.cfg.FailOpen {
				missing = append(missing, channel)
			}
			continue
		}

		if status == telegram.StatusLeft || status == telegram.StatusKicked {
			missing = append(missing, channel)
		}
	}

	if len(missing) > 0 {
		metrics.GateChecks.WithLabelValues("blocked").Inc()
		return GateResult{Missing: missing}
	}

	metrics.GateChecks.WithLabelValues("satisfied").Inc()
	return GateResult{Satisfied: true}
}

// PromptBlocked sends the join prompt for a blocked user: one join
// button per unmet channel and a retry button that re-enters the flow
// with the original deep-link payload, so the user lands back on the
// content they asked for.
func (g *SubscriptionGate) PromptBlocked(ctx context.Context, chatID int64, payload string, missing []int64) error {
	if payload == "" {
		payload = "start"
	}

	var kb telegram.Keyboard
	for _, channel := range missing {
		invite, err := g.chat.InviteLink(ctx, channel)
		if err != nil {
			logger.Log.Warn("could not fetch invite link",
				zap.Int64("channel", channel),
				zap.Error(err),
			)
			invite = g.cfg.FallbackInvite
		}
		if invite == "" {
			continue
		}
		kb = append(kb, []telegram.Button{telegram.URLButton("📢 Join Backup Channel", invite)})
	}

	retry := DeepLink(g.chat.Username(), payload)
	kb = append(kb, []telegram.Button{telegram.URLButton("🔄 Try Again", retry)})

	text := "⚠️ *Access Restricted*\n\nTo use this bot and view the hidden content, you must join our Backup Channel first."
	return g.chat.SendText(ctx, chatID, text, kb)
}
