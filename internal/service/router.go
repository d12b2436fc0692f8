package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rajcricket/Free-Donuts/internal/config"
	"github.com/rajcricket/Free-Donuts/internal/db/models"
	"github.com/rajcricket/Free-Donuts/internal/db/repository"
	"github.com/rajcricket/Free-Donuts/internal/linkcodec"
	"github.com/rajcricket/Free-Donuts/internal/metrics"
	"github.com/rajcricket/Free-Donuts/internal/telegram"
	"github.com/rajcricket/Free-Donuts/pkg/logger"
)

// ErrNoDestination is returned when a product has no mapped channel
// and no default channel is configured.
var ErrNoDestination = errors.New("no destination channel configured")

// DistributionRouter publishes classified files to their product's
// destination channel and mirrors an annotated copy to the archive
// channel.
type DistributionRouter struct {
	chat    ChatClient
	files   repository.FileRepository
	routes  config.RoutesConfig
	archive int64
	events  *MessagePublisher // optional
}

// NewDistributionRouter creates a DistributionRouter. archiveChannel
// may be 0 to disable archival copies.
func NewDistributionRouter(
	chat ChatClient,
	files repository.FileRepository,
	routes config.RoutesConfig,
	archiveChannel int64,
) *DistributionRouter {
	return &DistributionRouter{
		chat:    chat,
		files:   files,
		routes:  routes,
		archive: archiveChannel,
	}
}

// SetEventPublisher wires the optional ops event publisher.
func (r *DistributionRouter) SetEventPublisher(events *MessagePublisher) {
	r.events = events
}

// Route maps a product tag to its destination channel, falling back to
// the configured default. With neither configured it returns
// ErrNoDestination and no publish is attempted.
func (r *DistributionRouter) Route(product string) (int64, error) {
	if ch, ok := r.routes.Products[product]; ok {
		return ch, nil
	}
	if r.routes.DefaultChannel != 0 {
		return r.routes.DefaultChannel, nil
	}
	return 0, fmt.Errorf("%w: product %q", ErrNoDestination, product)
}

// Publish distributes every file to the routed channel and archives an
// annotated copy. One item's failure never aborts the rest; each
// failure is logged and counted. Files stay classified even when every
// post for them fails, since republication is a separate step from
// classification.
func (r *DistributionRouter) Publish(ctx context.Context, fileIDs []int64, product, flavor string) (published, failed int) {
	dest, err := r.Route(product)
	if err != nil {
		logger.Log.Error("no destination for product",
			zap.String("product", product),
			zap.Error(err),
		)
		return 0, len(fileIDs)
	}

	files, err := r.files.ListFilesByIDs(ctx, fileIDs)
	if err != nil {
		logger.Log.Error("could not load files for publishing",
			zap.Int("count", len(fileIDs)),
			zap.Error(err),
		)
		return 0, len(fileIDs)
	}

	for _, file := range files {
		if err := r.publishOne(ctx, dest, file, product, flavor); err != nil {
			logger.Log.Error("publish failed, continuing with next item",
				zap.Int64("file", file.ID),
				zap.Int64("channel", dest),
				zap.Error(err),
			)
			metrics.PublishFailures.Inc()
			failed++
			continue
		}
		metrics.ItemsPublished.WithLabelValues(product).Inc()
		published++
	}

	if r.events != nil {
		event := ContentPublishedEvent{
			FileIDs:   fileIDs,
			Product:   product,
			Flavor:    flavor,
			Channel:   dest,
			Published: published,
			Failed:    failed,
			At:        time.Now(),
		}
		if err := r.events.Publish(ctx, "content.published", event); err != nil {
			logger.Log.Warn("could not publish ops event", zap.Error(err))
		}
	}

	return published, failed
}

func (r *DistributionRouter) publishOne(ctx context.Context, dest int64, file *models.File, product, flavor string) error {
	link := DeepLink(r.chat.Username(), linkcodec.Encode(file.ID))
	caption := fmt.Sprintf("🎥 *New %s!*\n\n%s\n", product, file.Caption)
	kb := telegram.Keyboard{{telegram.URLButton("📥 Click to Watch / Download", link)}}

	if err := r.sendPreview(ctx, dest, file, caption, kb); err != nil {
		return fmt.Errorf("post to destination: %w", err)
	}

	if r.archive != 0 {
		note := fmt.Sprintf("🗂 ID: `%d`\nTags: `%s / %s`\nLink: %s", file.ID, product, flavor, link)
		if err := r.chat.SendMedia(ctx, r.archive, file.FileType, file.FileID, note, nil); err != nil {
			return fmt.Errorf("post archival copy: %w", err)
		}
	}

	return nil
}

// sendPreview posts a lightweight preview: the captured thumbnail as a
// fresh photo when one exists, the original media otherwise, plain
// text as the last resort.
func (r *DistributionRouter) sendPreview(ctx context.Context, dest int64, file *models.File, caption string, kb telegram.Keyboard) error {
	if file.ThumbID != nil {
		if data, err := r.chat.DownloadFile(ctx, *file.ThumbID); err != nil {
			logger.Log.Warn("thumbnail download failed, falling back to original media",
				zap.Int64("file", file.ID),
				zap.Error(err),
			)
		} else if err := r.chat.SendPhotoUpload(ctx, dest, "thumb.jpg", data, caption, kb); err != nil {
			logger.Log.Warn("thumbnail preview failed, falling back to original media",
				zap.Int64("file", file.ID),
				zap.Error(err),
			)
		} else {
			return nil
		}
	}

	if err := r.chat.SendMedia(ctx, dest, file.FileType, file.FileID, caption, kb); err == nil {
		return nil
	}

	return r.chat.SendText(ctx, dest, caption, kb)
}
