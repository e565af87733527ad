package articles

import (
	"context"
	"testing"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/internal/feed"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/testutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestService(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/articles",
		DbSchema: db.Schema,
	})
	defer cleanup()
	service := NewService(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	published := time.Date(2025, 1, 21, 14, 9, 0, 0, time.UTC)

	{
		keys, err := service.SeenKeys(ctx)
		require.NoError(t, err)
		require.Len(t, keys, 0)
	}
	{
		result, err := service.Upsert(ctx, feed.Article{
			Account:     "TechDaily",
			Title:       "First post",
			URL:         "https://a.example/p/1",
			PublishedAt: published,
			FirstSeen:   time.Now(),
		})
		require.NoError(t, err)
		require.Equal(t, feed.UpsertCreated, result)

		// same identity again is a no-op, even with a different url
		result, err = service.Upsert(ctx, feed.Article{
			Account:   "TechDaily",
			Title:     "First post",
			URL:       "https://a.example/p/1?from=timeline",
			FirstSeen: time.Now(),
		})
		require.NoError(t, err)
		require.Equal(t, feed.UpsertDuplicate, result)
	}
	{
		result, err := service.Upsert(ctx, feed.Article{
			Account:   "TechDaily",
			Title:     "Second post",
			URL:       "https://a.example/p/2",
			FirstSeen: time.Now(),
		})
		require.NoError(t, err)
		require.Equal(t, feed.UpsertCreated, result)

		result, err = service.Upsert(ctx, feed.Article{
			Account:     "OtherAccount",
			Title:       "First post",
			URL:         "https://b.example/p/1",
			PublishedAt: published,
			FirstSeen:   time.Now(),
		})
		require.NoError(t, err)
		require.Equal(t, feed.UpsertCreated, result)
	}
	{
		keys, err := service.SeenKeys(ctx)
		require.NoError(t, err)
		require.Len(t, keys, 3)
		require.Contains(t, keys, feed.Key{Account: "TechDaily", Title: "First post"})
		require.Contains(t, keys, feed.Key{Account: "OtherAccount", Title: "First post"})
	}
	{
		article, err := service.Get(ctx, "TechDaily", "First post")
		require.NoError(t, err)
		require.Equal(t, "https://a.example/p/1", article.URL)
		require.Equal(t, published, article.PublishedAt)

		_, err = service.Get(ctx, "TechDaily", "No such post")
		require.ErrorIs(t, err, ErrNotFound)
	}
	{
		all, err := service.List(ctx, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)

		mine, err := service.List(ctx, "TechDaily", 0, 0)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		for _, a := range mine {
			require.Equal(t, "TechDaily", a.Account)
		}

		// an article whose publish time never resolved decodes as zero
		second, err := service.Get(ctx, "TechDaily", "Second post")
		require.NoError(t, err)
		require.True(t, second.PublishedAt.IsZero())
	}
	{
		summaries, err := service.Accounts(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		require.Equal(t, "OtherAccount", summaries[0].Account)
		require.EqualValues(t, 1, summaries[0].ArticleCount)
		require.Equal(t, "TechDaily", summaries[1].Account)
		require.EqualValues(t, 2, summaries[1].ArticleCount)
		require.False(t, summaries[1].LastSeen.IsZero())
	}
	{
		unsynced, err := service.Unsynced(ctx, 100)
		require.NoError(t, err)
		require.Len(t, unsynced, 3)

		err = service.MarkSynced(ctx, []int64{unsynced[0].ID, unsynced[1].ID})
		require.NoError(t, err)

		unsynced, err = service.Unsynced(ctx, 100)
		require.NoError(t, err)
		require.Len(t, unsynced, 1)
	}
}
