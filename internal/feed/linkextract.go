package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrLinkUnavailable means the copy-link round trip never produced a
// usable URL within the attempt budget. The current post must be
// abandoned and navigation recovered; it stays eligible for a future run
// because it was never persisted.
var ErrLinkUnavailable = errors.New("could not extract article link")

type LinkExtractorConfig struct {
	// MaxAttempts bounds the copy-link round trips, default 4.
	MaxAttempts int
	// BaseDelay is the first backoff interval, doubling each attempt.
	// Default 500ms.
	BaseDelay time.Duration
}

func (c *LinkExtractorConfig) defaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 4
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
}

// LinkExtractor resolves the canonical URL of the currently-open article
// by driving the share menu and reconciling against clipboard state.
type LinkExtractor struct {
	dev   Device
	roles RoleTable
	cfg   LinkExtractorConfig
}

func NewLinkExtractor(dev Device, roles RoleTable, cfg LinkExtractorConfig) *LinkExtractor {
	cfg.defaults()
	return &LinkExtractor{dev: dev, roles: roles, cfg: cfg}
}

// Extract taps the more/share affordance, activates copy-link and reads
// the clipboard, retrying with exponential backoff while the menu has not
// rendered or the clipboard has not changed. lastLink is the last value
// accepted anywhere in this run: an unchanged clipboard after a copy tap
// means the action silently failed and the read value must not be
// attributed to this post.
func (e *LinkExtractor) Extract(ctx context.Context, lastLink string) (string, error) {
	ctx, span := tracer.Start(ctx, "LinkExtractor.Extract")
	defer span.End()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = time.Minute
	bo.Reset()

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(bo.NextBackOff()):
			}
		}

		link, err := e.attempt(ctx, lastLink)
		if err != nil {
			slog.WarnContext(ctx, "copy-link attempt failed",
				"attempt", attempt, "err", err)
			continue
		}
		if link != "" {
			span.SetAttributes(attribute.Int("attempts", attempt))
			return link, nil
		}
		slog.DebugContext(ctx, "clipboard not usable yet", "attempt", attempt)
	}

	err := fmt.Errorf("%w after %d attempts", ErrLinkUnavailable, e.cfg.MaxAttempts)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return "", err
}

// attempt performs one full round trip. It returns "" without error when
// the menu or clipboard simply was not ready.
func (e *LinkExtractor) attempt(ctx context.Context, lastLink string) (string, error) {
	snap, err := e.dev.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	// the menu may already be open from a previous attempt, in which
	// case the more button is gone and we go straight for copy-link
	if more := findByDesc(snap, e.roles.MoreMenuDesc); more != nil {
		if err := tapNode(ctx, e.dev, more); err != nil {
			return "", err
		}
		snap, err = e.dev.Snapshot(ctx)
		if err != nil {
			return "", err
		}
	}

	copyBtn := findByText(snap, e.roles.CopyLinkText)
	if copyBtn == nil {
		return "", nil
	}
	if err := tapNode(ctx, e.dev, copyBtn); err != nil {
		return "", err
	}

	link, err := e.dev.Clipboard(ctx)
	if err != nil {
		return "", err
	}
	if !acceptableLink(link, lastLink) {
		return "", nil
	}
	return link, nil
}

func acceptableLink(link, lastLink string) bool {
	if link == "" || link == lastLink {
		return false
	}
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}

func findByDesc(snap *uitree.Snapshot, desc string) *uitree.Node {
	matches := uitree.FindDescendants(snap.Root, func(n *uitree.Node) bool {
		return n.ContentDesc == desc
	})
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

func findByText(snap *uitree.Snapshot, text string) *uitree.Node {
	matches := uitree.FindDescendants(snap.Root, func(n *uitree.Node) bool {
		return n.Text == text
	})
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

func tapNode(ctx context.Context, dev Device, n *uitree.Node) error {
	x, y := n.Bounds.Center()
	return dev.Tap(ctx, x, y)
}
