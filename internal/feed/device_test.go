package feed

import (
	"context"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"
)

// scriptedDevice serves pre-built snapshots and clipboard values and
// records every input event, for driving the extractors in isolation.
type scriptedDevice struct {
	snapFn    func(call int) (*uitree.Snapshot, error)
	snapCalls int

	clipboard []string
	clipCalls int

	keys []int
	taps [][2]int
}

func (d *scriptedDevice) Snapshot(ctx context.Context) (*uitree.Snapshot, error) {
	snap, err := d.snapFn(d.snapCalls)
	d.snapCalls++
	return snap, err
}

func (d *scriptedDevice) Tap(ctx context.Context, x, y int) error {
	d.taps = append(d.taps, [2]int{x, y})
	return nil
}

func (d *scriptedDevice) KeyEvent(ctx context.Context, code int) error {
	d.keys = append(d.keys, code)
	return nil
}

func (d *scriptedDevice) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	return nil
}

func (d *scriptedDevice) Clipboard(ctx context.Context) (string, error) {
	i := d.clipCalls
	if i >= len(d.clipboard) {
		i = len(d.clipboard) - 1
	}
	d.clipCalls++
	if i < 0 {
		return "", nil
	}
	return d.clipboard[i], nil
}

func (d *scriptedDevice) Timezone(ctx context.Context) (*time.Location, error) {
	return time.UTC, nil
}

// tree-building helpers shared by the extractor tests, using the default
// role table's identifiers

func appNode(kind, text string, bounds uitree.Bounds, kids ...*uitree.Node) *uitree.Node {
	n := &uitree.Node{
		Text:     text,
		Bounds:   bounds,
		Children: kids,
	}
	switch kind {
	case "row":
		n.ResourceID = "com.tencent.mm:id/axy"
	case "header":
		n.ResourceID = "com.tencent.mm:id/a5q"
	case "title":
		n.ResourceID = "com.tencent.mm:id/qit"
	case "timestamp":
		n.ResourceID = "com.tencent.mm:id/c3b"
	case "batch":
		n.ResourceID = "com.tencent.mm:id/an6"
	}
	return n
}

func rootSnapshot(kids ...*uitree.Node) *uitree.Snapshot {
	return uitree.NewSnapshot(&uitree.Node{
		Class:    "hierarchy",
		Bounds:   uitree.Bounds{Right: 1080, Bottom: 1920},
		Children: kids,
	})
}
