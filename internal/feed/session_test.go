package feed

import (
	"context"
	"testing"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"

	"github.com/stretchr/testify/require"
)

type bootDevice struct {
	scriptedDevice
	screenOn  bool
	screenOff bool
	clipper   bool
	homed     int
	launched  []string
}

func (d *bootDevice) ScreenOn(ctx context.Context) error {
	d.screenOn = true
	return nil
}

func (d *bootDevice) ScreenOff(ctx context.Context) error {
	d.screenOff = true
	return nil
}

func (d *bootDevice) Home(ctx context.Context) error {
	d.homed++
	return nil
}

func (d *bootDevice) LaunchApp(ctx context.Context, pkg string) error {
	d.launched = append(d.launched, pkg)
	return nil
}

func (d *bootDevice) EnsureClipboard(ctx context.Context) error {
	d.clipper = true
	return nil
}

func TestSessionBegin(t *testing.T) {
	dev := &bootDevice{}
	dev.snapFn = func(int) (*uitree.Snapshot, error) {
		return rootSnapshot(&uitree.Node{
			Text:   "订阅号",
			Bounds: uitree.Bounds{Left: 0, Top: 500, Right: 1080, Bottom: 600},
		}), nil
	}
	s := NewSession(dev, DefaultRoleTable(), time.Millisecond)

	require.NoError(t, s.Begin(context.Background()))
	require.True(t, dev.screenOn)
	require.True(t, dev.clipper)
	require.Equal(t, 1, dev.homed)
	// launched once, backed out to a known screen, launched again
	require.Equal(t, []string{WeChatPackage, WeChatPackage}, dev.launched)
	require.Len(t, dev.keys, 5)
	// the subscription tab got tapped
	require.Equal(t, [][2]int{{540, 550}}, dev.taps)
}

func TestSessionBeginFailsWithoutFeedTab(t *testing.T) {
	dev := &bootDevice{}
	dev.snapFn = func(int) (*uitree.Snapshot, error) {
		return rootSnapshot(&uitree.Node{Text: "Chats"}), nil
	}
	s := NewSession(dev, DefaultRoleTable(), time.Millisecond)

	require.Error(t, s.Begin(context.Background()))
	require.Empty(t, dev.taps)
}

func TestSessionEnd(t *testing.T) {
	dev := &bootDevice{}
	s := NewSession(dev, DefaultRoleTable(), time.Millisecond)

	require.NoError(t, s.End(context.Background()))
	require.Equal(t, 1, dev.homed)
	require.True(t, dev.screenOff)
}
