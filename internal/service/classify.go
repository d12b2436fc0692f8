package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rajcricket/Free-Donuts/internal/db"
	"github.com/rajcricket/Free-Donuts/internal/db/repository"
	"github.com/rajcricket/Free-Donuts/internal/telegram"
	"github.com/rajcricket/Free-Donuts/pkg/logger"
)

// Callback payload step markers. The full grammar is
// prod_<product>_<ref> and flav_<product>_<flavor>_<ref>, where <ref>
// is a Ref wire form.
const (
	prodPrefix = "prod_"
	flavPrefix = "flav_"
)

// ErrUnknownPayload is returned for callback data this protocol does
// not recognize.
var ErrUnknownPayload = errors.New("unknown callback payload")

// Classifier drives the two-step product/flavor selection. The whole
// in-progress state lives in the callback payloads; no session is held
// between the two prompts.
type Classifier struct {
	chat     ChatClient
	files    repository.FileRepository
	batches  repository.BatchRepository
	router   *DistributionRouter
	products []string
	flavors  []string
}

// NewClassifier creates a Classifier with the configured tag
// vocabularies.
func NewClassifier(
	chat ChatClient,
	files repository.FileRepository,
	batches repository.BatchRepository,
	router *DistributionRouter,
	products, flavors []string,
) *Classifier {
	return &Classifier{
		chat:     chat,
		files:    files,
		batches:  batches,
		router:   router,
		products: products,
		flavors:  flavors,
	}
}

// PromptProduct sends the first menu step for a collected unit.
func (c *Classifier) PromptProduct(ctx context.Context, chatID int64, ref Ref) error {
	var kb telegram.Keyboard
	for _, p := range c.products {
		data := prodPrefix + p + "_" + ref.String()
		kb = append(kb, []telegram.Button{telegram.DataButton(p, data)})
	}

	what := "this upload"
	if ref.IsBatch() {
		what = fmt.Sprintf("batch #%d", ref.ID())
	}
	text := fmt.Sprintf("🏷 Select a *product* for %s:", what)
	return c.chat.SendText(ctx, chatID, text, kb)
}

// HandleCallback dispatches a callback payload to the matching step.
func (c *Classifier) HandleCallback(ctx context.Context, chatID int64, data string) error {
	switch {
	case strings.HasPrefix(data, prodPrefix):
		return c.handleProduct(ctx, chatID, data)
	case strings.HasPrefix(data, flavPrefix):
		return c.handleFlavor(ctx, chatID, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPayload, data)
	}
}

// handleProduct records nothing: it just re-emits the chosen product
// and the carried reference inside the flavor menu's payloads.
func (c *Classifier) handleProduct(ctx context.Context, chatID int64, data string) error {
	product, ref, err := parseProductPayload(data)
	if err != nil {
		return err
	}
	if !contains(c.products, product) {
		return fmt.Errorf("%w: unknown product %q", ErrUnknownPayload, product)
	}

	var kb telegram.Keyboard
	for _, f := range c.flavors {
		payload := flavPrefix + product + "_" + f + "_" + ref.String()
		kb = append(kb, []telegram.Button{telegram.DataButton(f, payload)})
	}

	text := fmt.Sprintf("🏷 Product *%s*. Now select a *flavor*:", product)
	return c.chat.SendText(ctx, chatID, text, kb)
}

// handleFlavor finalizes a classification: it resolves the carried
// reference to file ids, applies the tag pair, drops the batch row and
// hands the files to the distribution router.
func (c *Classifier) handleFlavor(ctx context.Context, chatID int64, data string) error {
	product, flavor, ref, err := parseFlavorPayload(data)
	if err != nil {
		return err
	}
	if !contains(c.products, product) || !contains(c.flavors, flavor) {
		return fmt.Errorf("%w: unknown tags %q/%q", ErrUnknownPayload, product, flavor)
	}

	fileIDs, err := c.resolveRef(ctx, ref)
	if err != nil {
		if db.IsNotFound(err) {
			// Batch already classified or deleted; tell the owner
			// instead of failing the whole callback.
			return c.chat.SendText(ctx, chatID,
				"❌ That batch no longer exists. It may already be classified.", nil)
		}
		return fmt.Errorf("resolve reference: %w", err)
	}

	updated, err := c.files.ApplyClassification(ctx, fileIDs, product, flavor)
	if err != nil {
		return fmt.Errorf("apply classification: %w", err)
	}
	skipped := len(fileIDs) - len(updated)

	if ref.IsBatch() {
		if err := c.batches.DeleteBatch(ctx, ref.ID()); err != nil && !db.IsNotFound(err) {
			logger.Log.Warn("could not delete classified batch",
				zap.Int64("batch", ref.ID()),
				zap.Error(err),
			)
		}
	}

	logger.Log.Info("classification applied",
		zap.String("product", product),
		zap.String("flavor", flavor),
		zap.Int("files", len(updated)),
		zap.Int("skipped", skipped),
	)

	// Only the rows this classification actually tagged are
	// republished; already-classified files keep their old tags and
	// must not be posted under the new ones.
	var published, failed int
	if len(updated) > 0 {
		published, failed = c.router.Publish(ctx, updated, product, flavor)
	}

	text := fmt.Sprintf("✅ Classified *%d* file(s) as *%s / %s*.\n📤 Published: %d, failed: %d.",
		len(updated), product, flavor, published, failed)
	if skipped > 0 {
		text += fmt.Sprintf("\n⚠️ %d file(s) were already classified and left unchanged.", skipped)
	}
	return c.chat.SendText(ctx, chatID, text, nil)
}

func (c *Classifier) resolveRef(ctx context.Context, ref Ref) ([]int64, error) {
	if !ref.IsBatch() {
		return []int64{ref.ID()}, nil
	}

	batch, err := c.batches.GetBatchByID(ctx, ref.ID())
	if err != nil {
		return nil, err
	}
	return batch.FileIDs, nil
}

func parseProductPayload(data string) (product string, ref Ref, err error) {
	rest := strings.TrimPrefix(data, prodPrefix)
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", Ref{}, fmt.Errorf("%w: %q", ErrUnknownPayload, data)
	}

	ref, err = ParseRef(parts[1])
	if err != nil {
		return "", Ref{}, fmt.Errorf("%w: %q", ErrUnknownPayload, data)
	}
	return parts[0], ref, nil
}

func parseFlavorPayload(data string) (product, flavor string, ref Ref, err error) {
	rest := strings.TrimPrefix(data, flavPrefix)
	parts := strings.SplitN(rest, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", Ref{}, fmt.Errorf("%w: %q", ErrUnknownPayload, data)
	}

	ref, err = ParseRef(parts[2])
	if err != nil {
		return "", "", Ref{}, fmt.Errorf("%w: %q", ErrUnknownPayload, data)
	}
	return parts[0], parts[1], ref, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
