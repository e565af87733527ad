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

// State is one step of the per-account traversal machine.
type State int

const (
	StateEnterAccount State = iota
	StateSeekFirstPost
	StateReadMetadata
	StateCheckSeen
	StateOpenAndExtractLink
	StatePersist
	StateAdvance
	StateAccountDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEnterAccount:
		return "enter_account"
	case StateSeekFirstPost:
		return "seek_first_post"
	case StateReadMetadata:
		return "read_metadata"
	case StateCheckSeen:
		return "check_seen"
	case StateOpenAndExtractLink:
		return "open_and_extract_link"
	case StatePersist:
		return "persist"
	case StateAdvance:
		return "advance"
	case StateAccountDone:
		return "account_done"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Config holds every knob of the traversal. Zero values fall back to
// defaults matching the original robot's timings.
type Config struct {
	// Accounts is the ordered list of official accounts to collect,
	// by display name.
	Accounts []string   `json:"accounts"`
	Roles    *RoleTable `json:"roles"`

	// MaxSeekSteps bounds focus steps while hunting for the first post
	// row after entering an account.
	MaxSeekSteps int `json:"max_seek_steps"`
	// MaxPostsPerAccount caps how many posts one account may yield per
	// cycle.
	MaxPostsPerAccount int `json:"max_posts_per_account"`
	// EnterAccountAttempts bounds snapshot+scroll rounds while locating
	// an account row in the subscription list.
	EnterAccountAttempts int `json:"enter_account_attempts"`
	// PersistRetries and PersistRetryDelay govern retries on transient
	// store errors.
	PersistRetries    int           `json:"persist_retries"`
	PersistRetryDelay time.Duration `json:"persist_retry_delay"`
	// StepDelay is the pause between navigation actions.
	StepDelay time.Duration `json:"step_delay"`
	// ArticleLoadDelay is how long to wait after opening an article
	// before driving its share menu.
	ArticleLoadDelay time.Duration `json:"article_load_delay"`
	// IdleInterval is the pause between full traversal cycles.
	IdleInterval time.Duration `json:"idle_interval"`

	Metadata MetadataExtractorConfig `json:"metadata"`
	Link     LinkExtractorConfig     `json:"link"`
}

func (c *Config) defaults() {
	if c.Roles == nil {
		t := DefaultRoleTable()
		c.Roles = &t
	}
	if c.MaxSeekSteps <= 0 {
		c.MaxSeekSteps = 8
	}
	if c.MaxPostsPerAccount <= 0 {
		c.MaxPostsPerAccount = 20
	}
	if c.EnterAccountAttempts <= 0 {
		c.EnterAccountAttempts = 3
	}
	if c.PersistRetries <= 0 {
		c.PersistRetries = 3
	}
	if c.PersistRetryDelay <= 0 {
		c.PersistRetryDelay = 2 * time.Second
	}
	if c.StepDelay <= 0 {
		c.StepDelay = 500 * time.Millisecond
	}
	if c.ArticleLoadDelay <= 0 {
		c.ArticleLoadDelay = 2 * time.Second
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = 30 * time.Second
	}
	c.Metadata.defaults()
	c.Link.defaults()
}

// Controller walks each tracked account's post list and emits every post
// not yet in the store, exactly once. All device access is strictly
// sequential; every transition blocks on its automation calls.
type Controller struct {
	dev   Device
	store Store
	cfg   Config
	roles RoleTable
	meta  *MetadataExtractor
	links *LinkExtractor

	seenOverall *SeenSet
	seenRun     *SeenSet
	// lastLink is the last clipboard value accepted anywhere in this
	// process; the link extractor uses it to detect silently failed
	// copies.
	lastLink string
}

// NewController bootstraps the seen index from the store and resolves the
// device timezone for timestamp parsing.
func NewController(ctx context.Context, dev Device, store Store, cfg Config) (*Controller, error) {
	cfg.defaults()

	loc, err := dev.Timezone(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve device timezone: %w", err)
	}
	parser := NewTimeParser(loc)

	keys, err := store.SeenKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap seen index: %w", err)
	}
	seen := NewSeenSet()
	now := time.Now()
	for _, key := range keys {
		seen.Add(key, now)
	}
	slog.InfoContext(ctx, "seen index bootstrapped", "keys", seen.Len(), "tz", loc.String())

	return &Controller{
		dev:         dev,
		store:       store,
		cfg:         cfg,
		roles:       *cfg.Roles,
		meta:        NewMetadataExtractor(dev, *cfg.Roles, parser, cfg.Metadata),
		links:       NewLinkExtractor(dev, *cfg.Roles, cfg.Link),
		seenOverall: seen,
		seenRun:     NewSeenSet(),
	}, nil
}

// RunCycle performs one pass over all tracked accounts. It expects the
// device to be on the subscription (account list) screen and leaves it
// there. Per-account failures abandon that account for the cycle and are
// not returned; only context cancellation aborts the cycle.
func (c *Controller) RunCycle(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Controller.RunCycle")
	defer span.End()

	c.seenRun = NewSeenSet()

	for _, account := range c.cfg.Accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.collectAccount(ctx, account); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.ErrorContext(ctx, "account abandoned for this cycle",
				"account", account, "err", err)
		}
	}
	span.SetAttributes(attribute.Int("accepted", c.seenRun.Len()))
	return nil
}

// collectAccount runs the traversal machine for one account, from the
// subscription list screen back to the subscription list screen.
func (c *Controller) collectAccount(ctx context.Context, account string) error {
	ctx, span := tracer.Start(ctx, "Controller.collectAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	var (
		state    = StateEnterAccount
		pending  []Metadata
		current  Metadata
		article  Article
		batched  bool
		accepted int
		// loopedBack counts consecutive re-reads of posts accepted
		// earlier in this run. At the true end of the feed advancing no
		// longer changes focus, so the same row keeps coming back; a few
		// in a row means the list is exhausted.
		loopedBack int
		failure    error
	)

	const maxLoopedBack = 3

	setState := func(next State) {
		slog.DebugContext(ctx, "state transition",
			"account", account, "from", state.String(), "to", next.String())
		state = next
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch state {
		case StateEnterAccount:
			if err := c.enterAccount(ctx, account); err != nil {
				failure = err
				setState(StateFailed)
				continue
			}
			setState(StateSeekFirstPost)

		case StateSeekFirstPost:
			if err := c.seekFirstPost(ctx); err != nil {
				failure = err
				setState(StateFailed)
				continue
			}
			setState(StateReadMetadata)

		case StateReadMetadata:
			items, wasBatched, err := c.meta.Extract(ctx)
			switch {
			case errors.Is(err, ErrMetadataIncomplete):
				// data-quality event: the post stays eligible for
				// a future run
				slog.WarnContext(ctx, "skipping post with incomplete metadata",
					"account", account, "err", err)
				batched = wasBatched
				setState(StateAdvance)
			case errors.Is(err, ErrFocusLost):
				if rerr := c.recoverFocus(ctx); rerr != nil {
					failure = rerr
					setState(StateFailed)
				} else {
					setState(StateReadMetadata)
				}
			case err != nil:
				failure = err
				setState(StateFailed)
			default:
				batched = wasBatched
				pending = items
				setState(StateCheckSeen)
			}

		case StateCheckSeen:
			if len(pending) == 0 {
				setState(StateAdvance)
				continue
			}
			current, pending = pending[0], pending[1:]
			if current.Account == "" {
				current.Account = account
			}
			key := Key{Account: current.Account, Title: current.Title}
			switch {
			case c.seenOverall.Contains(key) && !c.seenRun.Contains(key):
				// the boundary of previously collected history
				slog.InfoContext(ctx, "reached already collected post, account is caught up",
					"account", account, "title", current.Title)
				setState(StateAccountDone)
			case c.seenRun.Contains(key):
				loopedBack++
				if loopedBack >= maxLoopedBack {
					slog.InfoContext(ctx, "feed exhausted, focus no longer advancing",
						"account", account, "title", current.Title)
					setState(StateAccountDone)
					continue
				}
				slog.DebugContext(ctx, "looped back onto own output, moving on",
					"account", account, "title", current.Title)
				setState(StateCheckSeen)
			default:
				loopedBack = 0
				setState(StateOpenAndExtractLink)
			}

		case StateOpenAndExtractLink:
			url, err := c.openAndExtractLink(ctx, current)
			if err != nil {
				slog.WarnContext(ctx, "abandoning post, link extraction failed",
					"account", current.Account, "title", current.Title, "err", err)
				setState(StateCheckSeen)
				continue
			}
			article = Article{
				Account:     current.Account,
				Title:       current.Title,
				PublishedAt: current.PublishedAt,
				URL:         url,
				FirstSeen:   time.Now(),
			}
			setState(StatePersist)

		case StatePersist:
			if err := c.persist(ctx, article); err != nil {
				slog.ErrorContext(ctx, "dropping post for this run, store kept failing",
					"account", article.Account, "title", article.Title, "err", err)
				setState(StateCheckSeen)
				continue
			}
			accepted++
			setState(StateCheckSeen)

		case StateAdvance:
			if accepted >= c.cfg.MaxPostsPerAccount {
				slog.InfoContext(ctx, "per-account limit reached",
					"account", account, "accepted", accepted)
				setState(StateAccountDone)
				continue
			}
			if err := c.advance(ctx, batched); err != nil {
				failure = err
				setState(StateFailed)
				continue
			}
			setState(StateReadMetadata)

		case StateAccountDone:
			span.SetAttributes(attribute.Int("accepted", accepted))
			return c.leaveAccount(ctx)

		case StateFailed:
			span.RecordError(failure)
			span.SetStatus(codes.Error, failure.Error())
			// best effort return to the account list so the next
			// account starts from a known screen
			if err := c.leaveAccount(ctx); err != nil {
				slog.WarnContext(ctx, "navigation recovery failed", "err", err)
			}
			return failure
		}
	}
}

// enterAccount locates the account row in the subscription list and taps
// it, scrolling when the row is below the fold.
func (c *Controller) enterAccount(ctx context.Context, account string) error {
	for attempt := 0; attempt < c.cfg.EnterAccountAttempts; attempt++ {
		snap, err := c.dev.Snapshot(ctx)
		if err != nil {
			return err
		}
		row := findByText(snap, account)
		if row != nil {
			if err := tapNode(ctx, c.dev, row); err != nil {
				return err
			}
			return c.pause(ctx, c.cfg.StepDelay)
		}
		// scroll one screen down and look again
		if err := c.dev.Swipe(ctx, 540, 1400, 540, 400, 300*time.Millisecond); err != nil {
			return err
		}
		if err := c.pause(ctx, c.cfg.StepDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("account %q not found in subscription list after %d attempts",
		account, c.cfg.EnterAccountAttempts)
}

// seekFirstPost steps focus downward until it lands on a post row or
// batch group.
func (c *Controller) seekFirstPost(ctx context.Context) error {
	for step := 0; step < c.cfg.MaxSeekSteps; step++ {
		if err := c.dev.KeyEvent(ctx, adb.KeycodeDpadDown); err != nil {
			return err
		}
		if err := c.pause(ctx, c.cfg.StepDelay); err != nil {
			return err
		}
		snap, err := c.dev.Snapshot(ctx)
		if err != nil {
			return err
		}
		if c.focusedOnPost(snap) {
			return nil
		}
	}
	return fmt.Errorf("no post row focused after %d steps: cannot locate feed entry point",
		c.cfg.MaxSeekSteps)
}

func (c *Controller) focusedOnPost(snap *uitree.Snapshot) bool {
	focused := snap.Focused()
	if focused == nil {
		return false
	}
	hit := snap.Ancestor(focused, func(n *uitree.Node) bool {
		role := c.roles.Classify(n)
		return role == RolePostRow || role == RoleBatchContainer
	})
	if hit != nil {
		return true
	}
	return len(uitree.FindDescendants(focused, func(n *uitree.Node) bool {
		role := c.roles.Classify(n)
		return role == RolePostRow || role == RoleBatchContainer
	})) > 0
}

// recoverFocus runs a short corrective step sequence after a desync. It
// is deliberately bounded: if focus cannot be restored the account is
// abandoned for this cycle instead of looping forever.
func (c *Controller) recoverFocus(ctx context.Context) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.dev.KeyEvent(ctx, adb.KeycodeDpadDown); err != nil {
			return err
		}
		if err := c.pause(ctx, c.cfg.StepDelay); err != nil {
			return err
		}
		snap, err := c.dev.Snapshot(ctx)
		if err != nil {
			return err
		}
		if c.focusedOnPost(snap) {
			return nil
		}
	}
	return fmt.Errorf("focus not recovered: %w", ErrFocusLost)
}

// openAndExtractLink opens the article, resolves its URL through the
// share menu and returns the UI to the post list. On failure it backs out
// of whatever was left open before reporting.
func (c *Controller) openAndExtractLink(ctx context.Context, meta Metadata) (string, error) {
	x, y := meta.OpenAt.Center()
	if err := c.dev.Tap(ctx, x, y); err != nil {
		return "", err
	}
	if err := c.pause(ctx, c.cfg.ArticleLoadDelay); err != nil {
		return "", err
	}

	url, err := c.links.Extract(ctx, c.lastLink)
	if err != nil {
		// the share menu may still be open on top of the article
		_ = c.dev.KeyEvent(ctx, adb.KeycodeBack)
		_ = c.pause(ctx, c.cfg.StepDelay)
		_ = c.dev.KeyEvent(ctx, adb.KeycodeBack)
		_ = c.pause(ctx, c.cfg.StepDelay)
		return "", err
	}
	c.lastLink = url

	if err := c.dev.KeyEvent(ctx, adb.KeycodeBack); err != nil {
		return "", err
	}
	if err := c.pause(ctx, c.cfg.StepDelay); err != nil {
		return "", err
	}
	return url, nil
}

// persist hands the article to the store, folding duplicates into the
// seen index and retrying transient errors with a fixed delay.
func (c *Controller) persist(ctx context.Context, article Article) error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.PersistRetries; attempt++ {
		if attempt > 0 {
			if err := c.pause(ctx, c.cfg.PersistRetryDelay); err != nil {
				return err
			}
		}
		result, err := c.store.Upsert(ctx, article)
		if err != nil {
			lastErr = err
			slog.WarnContext(ctx, "store upsert failed",
				"attempt", attempt+1, "err", err)
			continue
		}

		key := article.Key()
		now := time.Now()
		c.seenOverall.Add(key, now)
		c.seenRun.Add(key, now)
		if result == UpsertDuplicate {
			slog.DebugContext(ctx, "store already had this post",
				"account", article.Account, "title", article.Title)
		} else {
			slog.InfoContext(ctx, "new post collected",
				"account", article.Account, "title", article.Title, "url", article.URL)
		}
		return nil
	}
	return fmt.Errorf("store upsert failed %d times: %w", c.cfg.PersistRetries, lastErr)
}

// advance moves focus past the row(s) just processed: one step for an
// itemized row, two for a batch group (the group and its shared
// timestamp row are separate focus stops).
func (c *Controller) advance(ctx context.Context, batched bool) error {
	steps := 1
	if batched {
		steps = 2
	}
	for i := 0; i < steps; i++ {
		if err := c.dev.KeyEvent(ctx, adb.KeycodeDpadDown); err != nil {
			return err
		}
		if err := c.pause(ctx, c.cfg.StepDelay); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) leaveAccount(ctx context.Context) error {
	if err := c.dev.KeyEvent(ctx, adb.KeycodeBack); err != nil {
		return err
	}
	return c.pause(ctx, c.cfg.StepDelay)
}

func (c *Controller) pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
