// Package candidate caches the candidate list served by the field
// autocomplete endpoint in the key-value store.
package candidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/autofilter/internal/db"
	domcand "github.com/kailas-cloud/autofilter/internal/domain/candidate"
)

// store is the consumer interface for the candidate cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Loader produces the rows cached under the key, one object per candidate.
type Loader func(ctx context.Context) ([]map[string]string, error)

// Options configures the cache layout.
type Options struct {
	Key   string
	Field string // row field used as candidate id and label
	TTL   time.Duration
}

// Repo reads candidates from the cache, filling it from the loader on a miss.
// Concurrent misses share one load.
type Repo struct {
	store      store
	opts       Options
	load       Loader
	group      singleflight.Group
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a candidate cache. load may be nil, in which case a miss
// yields an empty candidate list. cacheTotal has the label "result".
func New(s store, opts Options, load Loader, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Repo {
	return &Repo{
		store:      s,
		opts:       opts,
		load:       load,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Candidates returns every cached candidate in stored order.
func (r *Repo) Candidates(ctx context.Context) ([]domcand.Candidate, error) {
	if rows, ok := r.getFromCache(ctx); ok {
		r.incCache("hit")
		return r.toCandidates(rows), nil
	}
	r.incCache("miss")

	if r.load == nil {
		return nil, nil
	}

	v, err, _ := r.group.Do(r.opts.Key, func() (any, error) {
		return r.fill(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	rows, _ := v.([]map[string]string)
	return r.toCandidates(rows), nil
}

// Warm loads the candidate rows and stores them, returning the row count.
func (r *Repo) Warm(ctx context.Context) (int, error) {
	if r.load == nil {
		return 0, fmt.Errorf("candidate cache %s has no loader", r.opts.Key)
	}
	rows, err := r.fill(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Invalidate drops the cached list so the next read reloads it.
func (r *Repo) Invalidate(ctx context.Context) error {
	if err := r.store.Del(ctx, r.opts.Key); err != nil {
		return fmt.Errorf("invalidate candidates: %w", err)
	}
	return nil
}

func (r *Repo) fill(ctx context.Context) ([]map[string]string, error) {
	rows, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, r.opts.Key, data, r.opts.TTL); err != nil {
		r.logger.Warn("Failed to cache candidates", zap.String("key", r.opts.Key), zap.Error(err))
	}
	return rows, nil
}

func (r *Repo) getFromCache(ctx context.Context) ([]map[string]string, bool) {
	data, err := r.store.Get(ctx, r.opts.Key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.incCache("error")
			r.logger.Warn("Failed to get cached candidates", zap.String("key", r.opts.Key), zap.Error(err))
		}
		return nil, false
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("Failed to parse cached candidates", zap.String("key", r.opts.Key), zap.Error(err))
		return nil, false
	}
	rows := make([]map[string]string, 0, len(raw))
	for _, obj := range raw {
		row := make(map[string]string, len(obj))
		for k, v := range obj {
			switch x := v.(type) {
			case string:
				row[k] = x
			case float64, bool:
				row[k] = fmt.Sprint(x)
			}
		}
		rows = append(rows, row)
	}
	return rows, true
}

// toCandidates skips rows without the value field.
func (r *Repo) toCandidates(rows []map[string]string) []domcand.Candidate {
	out := make([]domcand.Candidate, 0, len(rows))
	for _, row := range rows {
		v, ok := row[r.opts.Field]
		if !ok {
			continue
		}
		out = append(out, domcand.Candidate{ID: v, Label: v, Attrs: row})
	}
	return out
}

func (r *Repo) incCache(result string) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues(result).Inc()
	}
}
