package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/adb"
)

// WeChatPackage is the Android package name of the target app.
const WeChatPackage = "com.tencent.mm"

// Session performs the mechanical screen/app bootstrap around each
// traversal cycle: wake the device, bring WeChat to its home screen,
// make sure the clipboard bridge answers, and open the subscription tab.
type Session struct {
	dev       SessionDevice
	roles     RoleTable
	stepDelay time.Duration
}

func NewSession(dev SessionDevice, roles RoleTable, stepDelay time.Duration) *Session {
	if stepDelay <= 0 {
		stepDelay = time.Second
	}
	return &Session{dev: dev, roles: roles, stepDelay: stepDelay}
}

// Begin leaves the device on the subscription (account list) screen.
func (s *Session) Begin(ctx context.Context) error {
	if err := s.dev.ScreenOn(ctx); err != nil {
		return fmt.Errorf("wake screen: %w", err)
	}
	if err := s.dev.EnsureClipboard(ctx); err != nil {
		return fmt.Errorf("clipboard bridge: %w", err)
	}
	if err := s.dev.Home(ctx); err != nil {
		return err
	}
	if err := s.pause(ctx); err != nil {
		return err
	}

	// launch, back out of whatever screen the app was left on, and
	// launch again so we are reliably on the app home screen
	if err := s.dev.LaunchApp(ctx, WeChatPackage); err != nil {
		return fmt.Errorf("launch wechat: %w", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.dev.KeyEvent(ctx, adb.KeycodeBack); err != nil {
			return err
		}
	}
	if err := s.dev.LaunchApp(ctx, WeChatPackage); err != nil {
		return err
	}
	if err := s.pause(ctx); err != nil {
		return err
	}

	return s.openFeedTab(ctx)
}

func (s *Session) openFeedTab(ctx context.Context) error {
	snap, err := s.dev.Snapshot(ctx)
	if err != nil {
		return err
	}
	tab := findByText(snap, s.roles.FeedTabText)
	if tab == nil {
		return fmt.Errorf("subscription tab %q not on the app home screen", s.roles.FeedTabText)
	}
	if err := tapNode(ctx, s.dev, tab); err != nil {
		return err
	}
	return s.pause(ctx)
}

// End parks the device: home screen, display off.
func (s *Session) End(ctx context.Context) error {
	if err := s.dev.Home(ctx); err != nil {
		return err
	}
	if err := s.pause(ctx); err != nil {
		return err
	}
	return s.dev.ScreenOff(ctx)
}

func (s *Session) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.stepDelay):
		return nil
	}
}

// Monitor ties session bootstrap and traversal together into the
// long-running poll loop: one cycle over all tracked accounts, then an
// idle interval, forever. The upstream feed is not push-updated, so
// periodic re-polling is the only way to observe new posts.
type Monitor struct {
	session *Session
	ctrl    *Controller
	idle    time.Duration
}

func NewMonitor(ctx context.Context, dev SessionDevice, store Store, cfg Config) (*Monitor, error) {
	cfg.defaults()
	ctrl, err := NewController(ctx, dev, store, cfg)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		session: NewSession(dev, *cfg.Roles, cfg.StepDelay),
		ctrl:    ctrl,
		idle:    cfg.IdleInterval,
	}, nil
}

// Run loops traversal cycles until the context is cancelled. Cycle-level
// failures are logged and retried after the idle interval; the seen index
// guarantees a restarted cycle never re-emits stored posts.
func (m *Monitor) Run(ctx context.Context) error {
	for cycle := 0; ; cycle++ {
		slog.InfoContext(ctx, "starting traversal cycle", "cycle", cycle)

		if err := m.session.Begin(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.ErrorContext(ctx, "session bootstrap failed", "cycle", cycle, "err", err)
		} else {
			if err := m.ctrl.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.ErrorContext(ctx, "traversal cycle aborted", "cycle", cycle, "err", err)
			}
			if err := m.session.End(ctx); err != nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "session teardown failed", "cycle", cycle, "err", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.idle):
		}
	}
}
