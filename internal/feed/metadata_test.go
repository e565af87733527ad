package feed

import (
	"context"
	"testing"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/uitree"

	"github.com/stretchr/testify/require"
)

func testParser() TimeParser {
	p := NewTimeParser(time.UTC)
	p.Now = func() time.Time {
		return time.Date(2025, 1, 22, 10, 0, 0, 0, time.UTC)
	}
	return p
}

func testMetaConfig() MetadataExtractorConfig {
	return MetadataExtractorConfig{MaxRetries: 2, StepDelay: time.Millisecond}
}

func singleRow(account, title, stamp string) *uitree.Snapshot {
	var kids []*uitree.Node
	if account != "" {
		kids = append(kids, appNode("header", account,
			uitree.Bounds{Left: 40, Top: 300, Right: 400, Bottom: 360}))
	}
	if title != "" {
		kids = append(kids, appNode("title", title,
			uitree.Bounds{Left: 40, Top: 380, Right: 1040, Bottom: 460}))
	}
	if stamp != "" {
		kids = append(kids, appNode("timestamp", stamp,
			uitree.Bounds{Left: 420, Top: 300, Right: 600, Bottom: 360}))
	}
	row := appNode("row", "", uitree.Bounds{Left: 0, Top: 280, Right: 1080, Bottom: 480}, kids...)
	row.Focused = true
	return rootSnapshot(row)
}

func TestMetadataExtractSingleRow(t *testing.T) {
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return singleRow("TechDaily", "On the care of parsers", "2:09 PM"), nil
		},
	}
	e := NewMetadataExtractor(dev, DefaultRoleTable(), testParser(), testMetaConfig())

	items, batched, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.False(t, batched)
	require.Len(t, items, 1)
	require.Equal(t, "TechDaily", items[0].Account)
	require.Equal(t, "On the care of parsers", items[0].Title)
	require.Equal(t, time.Date(2025, 1, 22, 14, 9, 0, 0, time.UTC), items[0].PublishedAt)
	require.Equal(t, uitree.Bounds{Left: 40, Top: 380, Right: 1040, Bottom: 460}, items[0].OpenAt)
	require.Empty(t, dev.keys)
}

func TestMetadataExtractRetriesLateTitle(t *testing.T) {
	dev := &scriptedDevice{}
	dev.snapFn = func(call int) (*uitree.Snapshot, error) {
		if call == 0 {
			return singleRow("TechDaily", "", "2:09 PM"), nil
		}
		return singleRow("TechDaily", "Rendered the second time", "2:09 PM"), nil
	}
	e := NewMetadataExtractor(dev, DefaultRoleTable(), testParser(), testMetaConfig())

	items, _, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Rendered the second time", items[0].Title)
	// one corrective step for the itemized layout
	require.Len(t, dev.keys, 1)
}

func TestMetadataExtractTitleNeverRenders(t *testing.T) {
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return singleRow("TechDaily", "", "2:09 PM"), nil
		},
	}
	e := NewMetadataExtractor(dev, DefaultRoleTable(), testParser(), testMetaConfig())

	_, _, err := e.Extract(context.Background())
	require.ErrorIs(t, err, ErrMetadataIncomplete)
	require.Len(t, dev.keys, 2)
}

func TestMetadataExtractTimestampNeverRenders(t *testing.T) {
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return singleRow("TechDaily", "Untimed", ""), nil
		},
	}
	e := NewMetadataExtractor(dev, DefaultRoleTable(), testParser(), testMetaConfig())

	items, _, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, items[0].PublishedAt.IsZero())
}

func TestMetadataExtractBatchedRow(t *testing.T) {
	batch := appNode("batch", "", uitree.Bounds{Left: 0, Top: 460, Right: 1080, Bottom: 1000},
		appNode("title", "First of three", uitree.Bounds{Left: 40, Top: 480, Right: 1040, Bottom: 560}),
		appNode("title", "Second of three", uitree.Bounds{Left: 40, Top: 580, Right: 1040, Bottom: 660}),
		appNode("title", "Third of three", uitree.Bounds{Left: 40, Top: 680, Right: 1040, Bottom: 760}),
	)
	row := appNode("row", "", uitree.Bounds{Left: 0, Top: 280, Right: 1080, Bottom: 1000},
		appNode("header", "TechDaily", uitree.Bounds{Left: 40, Top: 300, Right: 400, Bottom: 360}),
		appNode("timestamp", "Yesterday 2:09 PM", uitree.Bounds{Left: 420, Top: 300, Right: 700, Bottom: 360}),
		batch,
	)
	row.Focused = true
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return rootSnapshot(row), nil
		},
	}
	e := NewMetadataExtractor(dev, DefaultRoleTable(), testParser(), testMetaConfig())

	items, batched, err := e.Extract(context.Background())
	require.NoError(t, err)
	require.True(t, batched)
	require.Len(t, items, 3)
	want := time.Date(2025, 1, 21, 14, 9, 0, 0, time.UTC)
	seen := map[string]bool{}
	for _, it := range items {
		require.Equal(t, "TechDaily", it.Account)
		require.Equal(t, want, it.PublishedAt)
		seen[it.Title] = true
	}
	require.Len(t, seen, 3)
}

func TestMetadataExtractFocusLost(t *testing.T) {
	dev := &scriptedDevice{
		snapFn: func(int) (*uitree.Snapshot, error) {
			return rootSnapshot(appNode("row", "", uitree.Bounds{Top: 280, Bottom: 480})), nil
		},
	}
	e := NewMetadataExtractor(dev, DefaultRoleTable(), testParser(), testMetaConfig())

	_, _, err := e.Extract(context.Background())
	require.ErrorIs(t, err, ErrFocusLost)
}
