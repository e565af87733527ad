package articles

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/internal/feed"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/articles")

// ErrNotFound is returned by Get when no article matches the key.
var ErrNotFound = errors.New("article not found")

// Service owns the article table. It is the robot's persistence sink and
// the read model behind the HTTP API and the sync daemon.
type Service struct {
	db  *sql.DB
	qry *db.Queries
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
	}
}

// Upsert inserts the article, reporting whether it was new. (account,
// title) is the identity and urls are unique; a second sighting of either
// changes nothing, so collection cycles are safe to repeat.
func (s Service) Upsert(ctx context.Context, article feed.Article) (feed.UpsertResult, error) {
	ctx, span := tracer.Start(ctx, "Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("account", article.Account),
		attribute.String("title", article.Title),
	)

	firstSeen := article.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = time.Now()
	}
	result, err := s.qry.CreateArticle(ctx, db.CreateArticleParams{
		Account:     article.Account,
		Title:       article.Title,
		Url:         article.URL,
		PublishedAt: encodeTime(article.PublishedAt),
		FirstSeen:   firstSeen.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return feed.UpsertDuplicate, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return feed.UpsertDuplicate, err
	}
	if affected == 0 {
		return feed.UpsertDuplicate, nil
	}
	return feed.UpsertCreated, nil
}

// SeenKeys returns the identity of every stored article, for seeding the
// robot's dedup index at startup.
func (s Service) SeenKeys(ctx context.Context) ([]feed.Key, error) {
	ctx, span := tracer.Start(ctx, "SeenKeys")
	defer span.End()

	rows, err := s.qry.GetArticleKeys(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	keys := make([]feed.Key, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, feed.Key{Account: r.Account, Title: r.Title})
	}
	return keys, nil
}

// Get looks up one article by its identity.
func (s Service) Get(ctx context.Context, account, title string) (feed.Article, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()

	row, err := s.qry.GetArticle(ctx, db.GetArticleParams{Account: account, Title: title})
	if errors.Is(err, sql.ErrNoRows) {
		return feed.Article{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return feed.Article{}, err
	}
	return decodeArticle(row), nil
}

// List returns stored articles newest first, optionally filtered to one
// account.
func (s Service) List(ctx context.Context, account string, limit, offset int64) ([]feed.Article, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()
	span.SetAttributes(attribute.String("account", account))

	if limit <= 0 {
		limit = 50
	}

	var (
		rows []db.Article
		err  error
	)
	if account == "" {
		rows, err = s.qry.ListArticles(ctx, db.ListArticlesParams{
			Limit:  limit,
			Offset: offset,
		})
	} else {
		rows, err = s.qry.ListArticlesByAccount(ctx, db.ListArticlesByAccountParams{
			Account: account,
			Limit:   limit,
			Offset:  offset,
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]feed.Article, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeArticle(r))
	}
	return out, nil
}

// AccountSummary aggregates one account's stored output.
type AccountSummary struct {
	Account      string    `json:"account"`
	ArticleCount int64     `json:"article_count"`
	LastSeen     time.Time `json:"last_seen"`
}

// Accounts summarizes every account that has at least one stored article.
func (s Service) Accounts(ctx context.Context) ([]AccountSummary, error) {
	ctx, span := tracer.Start(ctx, "Accounts")
	defer span.End()

	rows, err := s.qry.ListAccounts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out := make([]AccountSummary, 0, len(rows))
	for _, r := range rows {
		summary := AccountSummary{
			Account:      r.Account,
			ArticleCount: r.ArticleCount,
		}
		// MAX() comes back through the driver as int64
		if unix, ok := r.LastSeen.(int64); ok && unix > 0 {
			summary.LastSeen = time.Unix(unix, 0).UTC()
		}
		out = append(out, summary)
	}
	return out, nil
}

// Unsynced returns up to limit articles not yet pushed to the remote
// index, oldest first so the sync daemon drains in insertion order.
func (s Service) Unsynced(ctx context.Context, limit int64) ([]db.Article, error) {
	return s.qry.GetUnsyncedArticles(ctx, limit)
}

// MarkSynced flags the given articles as pushed, atomically.
func (s Service) MarkSynced(ctx context.Context, ids []int64) error {
	ctx, span := tracer.Start(ctx, "MarkSynced")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(ids)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	for _, id := range ids {
		if err := txqry.MarkArticleSynced(ctx, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func decodeTime(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}

func decodeArticle(r db.Article) feed.Article {
	return feed.Article{
		Account:     r.Account,
		Title:       r.Title,
		URL:         r.Url,
		PublishedAt: decodeTime(r.PublishedAt),
		FirstSeen:   decodeTime(r.FirstSeen),
	}
}
