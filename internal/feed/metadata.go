package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/adb"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrMetadataIncomplete means a post's title fragment never materialized
// within the retry budget. The post is skipped for this run, not fatal.
var ErrMetadataIncomplete = errors.New("post metadata never fully rendered")

// ErrFocusLost means the snapshot holds no focused node of a recognized
// role. The controller reacts with a bounded corrective step sequence.
var ErrFocusLost = errors.New("focused node missing or of unexpected role")

// Metadata is one candidate post assembled from the currently focused
// feed row.
type Metadata struct {
	Account     string
	Title       string
	PublishedAt time.Time
	// OpenAt is the tap target that opens the full article.
	OpenAt uitree.Bounds
}

type MetadataExtractorConfig struct {
	// MaxRetries bounds the step-and-resnapshot loops for title and
	// timestamp independently. Default 3.
	MaxRetries int
	// StepDelay is the pause after a navigation step before the next
	// dump, giving the app time to render. Default 300ms.
	StepDelay time.Duration
}

func (c *MetadataExtractorConfig) defaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.StepDelay <= 0 {
		c.StepDelay = 300 * time.Millisecond
	}
}

// MetadataExtractor reads account, title and publish time off the focused
// post row. Feed content streams in progressively, so a fragment being
// absent from one dump usually means it has not rendered yet; the
// extractor nudges focus and re-dumps a bounded number of times before
// giving up.
type MetadataExtractor struct {
	dev    Device
	roles  RoleTable
	parser TimeParser
	cfg    MetadataExtractorConfig
}

func NewMetadataExtractor(dev Device, roles RoleTable, parser TimeParser, cfg MetadataExtractorConfig) *MetadataExtractor {
	cfg.defaults()
	return &MetadataExtractor{dev: dev, roles: roles, parser: parser, cfg: cfg}
}

// rowView is one dump narrowed down to the focused row.
type rowView struct {
	snap *uitree.Snapshot
	row  *uitree.Node
	// batch is non-nil when the row is the grouped multi-post layout
	// where several titles share one timestamp.
	batch *uitree.Node
}

// Extract assembles the post(s) represented by the focused row: one entry
// for the itemized layout, one entry per grouped title for the batched
// layout (all sharing the same publish time). The bool result reports
// whether the row was batched, which changes how far the controller must
// advance afterwards.
func (e *MetadataExtractor) Extract(ctx context.Context) ([]Metadata, bool, error) {
	ctx, span := tracer.Start(ctx, "MetadataExtractor.Extract")
	defer span.End()

	view, err := e.currentRow(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	batched := view.batch != nil

	var titles []*uitree.Node
	for retry := 0; ; retry++ {
		titles = e.titleNodes(view)
		if len(titles) > 0 {
			break
		}
		if retry >= e.cfg.MaxRetries {
			span.SetStatus(codes.Error, "title never rendered")
			return nil, batched, fmt.Errorf("title absent after %d retries: %w",
				e.cfg.MaxRetries, ErrMetadataIncomplete)
		}
		if err := e.nudge(ctx, batched); err != nil {
			return nil, batched, err
		}
		if view, err = e.currentRow(ctx); err != nil {
			return nil, batched, err
		}
		// the layout category can flip once more content renders
		batched = view.batch != nil
	}

	account := e.headerText(view)

	// timestamp fragments render independently of titles, so this runs
	// its own bounded loop
	var publishedAt time.Time
	for retry := 0; ; retry++ {
		raw := e.timestampText(view)
		if raw != "" {
			parsed, perr := e.parser.Parse(raw)
			if perr == nil {
				publishedAt = parsed
				break
			}
			slog.DebugContext(ctx, "timestamp not parseable yet", "raw", raw, "err", perr)
		}
		if retry >= e.cfg.MaxRetries {
			slog.WarnContext(ctx, "publish time never resolved, continuing without it",
				"account", account, "title", titles[0].Text)
			break
		}
		if err := e.nudge(ctx, batched); err != nil {
			return nil, batched, err
		}
		if view, err = e.currentRow(ctx); err != nil {
			return nil, batched, err
		}
	}

	items := make([]Metadata, 0, len(titles))
	for _, title := range titles {
		items = append(items, Metadata{
			Account:     account,
			Title:       title.Text,
			PublishedAt: publishedAt,
			OpenAt:      title.Bounds,
		})
	}
	span.SetAttributes(
		attribute.Int("posts", len(items)),
		attribute.Bool("batched", batched),
	)
	return items, batched, nil
}

func (e *MetadataExtractor) currentRow(ctx context.Context) (rowView, error) {
	snap, err := e.dev.Snapshot(ctx)
	if err != nil {
		return rowView{}, err
	}
	focused := snap.Focused()
	if focused == nil {
		return rowView{}, ErrFocusLost
	}

	row := snap.Ancestor(focused, func(n *uitree.Node) bool {
		return e.roles.Is(n, RolePostRow)
	})
	if row == nil {
		row = focused
	}

	batch := snap.Ancestor(focused, func(n *uitree.Node) bool {
		return e.roles.Is(n, RoleBatchContainer)
	})
	if batch == nil {
		if inner := uitree.FindDescendants(row, func(n *uitree.Node) bool {
			return e.roles.Is(n, RoleBatchContainer)
		}); len(inner) > 0 {
			batch = inner[0]
		}
	}
	return rowView{snap: snap, row: row, batch: batch}, nil
}

func (e *MetadataExtractor) titleNodes(view rowView) []*uitree.Node {
	scope := view.row
	if view.batch != nil {
		scope = view.batch
	}
	return uitree.FindDescendants(scope, func(n *uitree.Node) bool {
		return e.roles.Is(n, RoleTitle) && n.Text != ""
	})
}

func (e *MetadataExtractor) headerText(view rowView) string {
	headers := uitree.FindDescendants(view.row, func(n *uitree.Node) bool {
		return e.roles.Is(n, RoleHeader) && n.Text != ""
	})
	if len(headers) == 0 {
		headers = uitree.FindDescendants(view.snap.Root, func(n *uitree.Node) bool {
			return e.roles.Is(n, RoleHeader) && n.Text != ""
		})
	}
	if len(headers) == 0 {
		return ""
	}
	return headers[0].Text
}

func (e *MetadataExtractor) timestampText(view rowView) string {
	stamps := uitree.FindDescendants(view.row, func(n *uitree.Node) bool {
		return e.roles.Is(n, RoleTimestamp) && n.Text != ""
	})
	if len(stamps) == 0 {
		return ""
	}
	return stamps[0].Text
}

// nudge issues the incremental navigation steps that force a partially
// rendered row to materialize: a single advance for the itemized layout,
// advance-retreat-advance for the batched one.
func (e *MetadataExtractor) nudge(ctx context.Context, batched bool) error {
	steps := []int{adb.KeycodeDpadDown}
	if batched {
		steps = []int{adb.KeycodeDpadDown, adb.KeycodeDpadUp, adb.KeycodeDpadDown}
	}
	for _, code := range steps {
		if err := e.dev.KeyEvent(ctx, code); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.StepDelay):
		}
	}
	return nil
}
