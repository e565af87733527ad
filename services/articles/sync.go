package articles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/restyutil"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type SyncConfig struct {
	// Endpoint receives POSTed article batches as a JSON array.
	Endpoint string `json:"endpoint"`
	// BatchSize is how many articles go in one request, default 100.
	BatchSize int64 `json:"batch_size"`
	// Interval is the pause between drain passes, default 5m.
	Interval time.Duration `json:"interval"`
}

func (c *SyncConfig) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
}

type syncDoc struct {
	Account     string `json:"account"`
	Title       string `json:"title"`
	Url         string `json:"url"`
	PublishedAt int64  `json:"published_at"`
	FirstSeen   int64  `json:"first_seen"`
}

type syncResult struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// Syncer pushes stored articles to a remote index in batches, marking
// them synced only after the remote acknowledges the whole batch.
type Syncer struct {
	svc    Service
	client *resty.Client
	cfg    SyncConfig
}

func NewSyncer(svc Service, cfg SyncConfig) *Syncer {
	cfg.defaults()
	client := resty.New()
	telemetry.InstrumentResty(client, "services/articles/sync")
	return &Syncer{svc: svc, client: client, cfg: cfg}
}

// DebugHTTP writes every sync request and response to the given output,
// for inspecting what the remote index actually receives.
func (s *Syncer) DebugHTTP(out restyutil.Output) {
	restyutil.DumpTransactions(s.client, out)
}

// Drain pushes every unsynced article, batch by batch, until the backlog
// is empty or a batch fails. It returns the number of articles pushed.
func (s *Syncer) Drain(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Syncer.Drain")
	defer span.End()

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rows, err := s.svc.Unsynced(ctx, s.cfg.BatchSize)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}
		if len(rows) == 0 {
			span.SetAttributes(attribute.Int("pushed", total))
			return total, nil
		}

		docs := make([]syncDoc, 0, len(rows))
		ids := make([]int64, 0, len(rows))
		for _, r := range rows {
			docs = append(docs, syncDoc{
				Account:     r.Account,
				Title:       r.Title,
				Url:         r.Url,
				PublishedAt: r.PublishedAt,
				FirstSeen:   r.FirstSeen,
			})
			ids = append(ids, r.ID)
		}

		if err := s.push(ctx, docs); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}
		if err := s.svc.MarkSynced(ctx, ids); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return total, err
		}
		total += len(ids)
		slog.InfoContext(ctx, "pushed article batch", "count", len(ids))
	}
}

func (s *Syncer) push(ctx context.Context, docs []syncDoc) error {
	var result syncResult
	res, err := s.client.R().
		SetContext(ctx).
		SetBody(docs).
		SetResult(&result).
		Post(s.cfg.Endpoint)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("sync endpoint returned status %d", res.StatusCode())
	}
	if result.ErrorCount > 0 {
		return fmt.Errorf("sync endpoint rejected %d of %d articles",
			result.ErrorCount, len(docs))
	}
	return nil
}

// RunDaemon drains on a fixed interval until the context ends.
func (s *Syncer) RunDaemon(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Drain(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "sync pass failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
