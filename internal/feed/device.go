package feed

import (
	"context"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"
)

// Device is the automation channel the traversal consumes: one physical
// screen, strictly sequential access. Implemented by *adb.Robot in
// production and by scripted fakes in tests.
type Device interface {
	Snapshot(ctx context.Context) (*uitree.Snapshot, error)
	Tap(ctx context.Context, x, y int) error
	KeyEvent(ctx context.Context, code int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	Clipboard(ctx context.Context) (string, error)
	Timezone(ctx context.Context) (*time.Location, error)
}

// SessionDevice adds the device lifecycle operations the session
// bootstrap needs on top of plain navigation.
type SessionDevice interface {
	Device
	ScreenOn(ctx context.Context) error
	ScreenOff(ctx context.Context) error
	Home(ctx context.Context) error
	LaunchApp(ctx context.Context, pkg string) error
	EnsureClipboard(ctx context.Context) error
}

// Store is the persistence contract the controller depends on. Upsert
// must report duplicates as a result, not an error.
type Store interface {
	Upsert(ctx context.Context, article Article) (UpsertResult, error)
	SeenKeys(ctx context.Context) ([]Key, error)
}
