package articles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/internal/feed"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/testutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestApi(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/articles:api",
		DbSchema: db.Schema,
	})
	defer cleanup()
	service := NewService(setup.DB)

	ctx := context.Background()
	for _, a := range []feed.Article{
		{Account: "TechDaily", Title: "First post", URL: "https://a.example/p/1",
			PublishedAt: time.Date(2025, 1, 21, 14, 9, 0, 0, time.UTC)},
		{Account: "TechDaily", Title: "Second post", URL: "https://a.example/p/2",
			PublishedAt: time.Date(2025, 1, 22, 9, 30, 0, 0, time.UTC)},
		{Account: "OtherAccount", Title: "Hello", URL: "https://b.example/p/1"},
	} {
		a.FirstSeen = time.Now()
		_, err := service.Upsert(ctx, a)
		require.NoError(t, err)
	}

	server := httptest.NewServer(NewRouter(service))
	defer server.Close()

	getJSON := func(path string, out any) int {
		res, err := http.Get(server.URL + path)
		require.NoError(t, err)
		defer res.Body.Close()
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
		return res.StatusCode
	}

	{
		var body struct {
			Articles []feed.Article `json:"articles"`
		}
		status := getJSON("/articles", &body)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, body.Articles, 3)
		// newest publish time first
		require.Equal(t, "Second post", body.Articles[0].Title)
	}
	{
		var body struct {
			Articles []feed.Article `json:"articles"`
		}
		status := getJSON("/articles?account=TechDaily&limit=1", &body)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, body.Articles, 1)
		require.Equal(t, "TechDaily", body.Articles[0].Account)
	}
	{
		var article feed.Article
		status := getJSON("/articles/TechDaily/"+url.PathEscape("First post"), &article)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "https://a.example/p/1", article.URL)

		var errBody map[string]string
		status = getJSON("/articles/TechDaily/missing", &errBody)
		require.Equal(t, http.StatusNotFound, status)
	}
	{
		var body struct {
			Accounts []AccountSummary `json:"accounts"`
		}
		status := getJSON("/accounts", &body)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, body.Accounts, 2)
	}
}
