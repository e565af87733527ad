package feed

import (
	"context"
	"testing"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"

	"github.com/stretchr/testify/require"
)

func articleWithMenu(menuOpen bool) *uitree.Snapshot {
	kids := []*uitree.Node{
		{
			ContentDesc: "更多",
			Bounds:      uitree.Bounds{Left: 1000, Top: 40, Right: 1080, Bottom: 120},
		},
	}
	if menuOpen {
		kids = append(kids, &uitree.Node{
			Text:   "复制链接",
			Bounds: uitree.Bounds{Left: 100, Top: 900, Right: 980, Bottom: 1000},
		})
	}
	return rootSnapshot(kids...)
}

func TestLinkExtractorAcceptsOnlyChangedClipboard(t *testing.T) {
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return articleWithMenu(true), nil
		},
		clipboard: []string{"", "https://old", "https://old", "https://new"},
	}
	e := NewLinkExtractor(dev, DefaultRoleTable(), LinkExtractorConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
	})

	link, err := e.Extract(context.Background(), "https://old")
	require.NoError(t, err)
	require.Equal(t, "https://new", link)
	require.Equal(t, 4, dev.clipCalls)
}

func TestLinkExtractorExhaustsOnUnchangedClipboard(t *testing.T) {
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return articleWithMenu(true), nil
		},
		clipboard: []string{"https://old"},
	}
	e := NewLinkExtractor(dev, DefaultRoleTable(), LinkExtractorConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	_, err := e.Extract(context.Background(), "https://old")
	require.ErrorIs(t, err, ErrLinkUnavailable)
	require.Equal(t, 3, dev.clipCalls)
}

func TestLinkExtractorRejectsNonLinks(t *testing.T) {
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return articleWithMenu(true), nil
		},
		clipboard: []string{"some copied text", "https://a.example/p/1"},
	}
	e := NewLinkExtractor(dev, DefaultRoleTable(), LinkExtractorConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
	})

	link, err := e.Extract(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "https://a.example/p/1", link)
	require.Equal(t, 2, dev.clipCalls)
}

func TestLinkExtractorRetriesUnrenderedMenu(t *testing.T) {
	// the copy-link control only shows up on the second open attempt
	dev := &scriptedDevice{
		clipboard: []string{"https://a.example/p/2"},
	}
	dev.snapFn = func(call int) (*uitree.Snapshot, error) {
		// each attempt dumps twice (before and after tapping more);
		// the menu renders from the third attempt on
		return articleWithMenu(call >= 4), nil
	}
	e := NewLinkExtractor(dev, DefaultRoleTable(), LinkExtractorConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
	})

	link, err := e.Extract(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "https://a.example/p/2", link)
	require.Equal(t, 1, dev.clipCalls)
}
