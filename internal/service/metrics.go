package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/internal/cache"
	"github.com/ntentasd/fitmetrics-api/internal/timeseries"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
)

const (
	SummaryKeyPattern  = "metrics:summary:owner:{owner_id}:days:{days}"
	TimelineKeyPattern = "metrics:timeline:owner:{owner_id}:days:{days}"

	// OwnerMetricsPattern matches every metrics key of one owner, across all
	// window lengths.
	OwnerMetricsPattern = "metrics:*:owner:{owner_id}:*"

	SummaryTTL  = 10 * time.Minute
	TimelineTTL = 15 * time.Minute

	MinDays             = 1
	MaxDays             = 365
	DefaultSummaryDays  = 7
	DefaultTimelineDays = 30
)

// AggregateReader is the data layer query behind both metrics reads.
type AggregateReader interface {
	FetchDailyAggregates(ctx context.Context, userID uuid.UUID, from time.Time) ([]types.DailyAggregate, error)
}

// Query is a metrics read over the trailing Days days of one owner.
type Query struct {
	OwnerID uuid.UUID
	Days    int
}

func (q Query) CacheArgs() cache.Args {
	return cache.Args{
		cache.OwnerParam: q.OwnerID,
		"days":           q.Days,
	}
}

func (q Query) validate() error {
	if q.OwnerID == uuid.Nil {
		return invalid("user_id", "must be set")
	}
	if q.Days < MinDays || q.Days > MaxDays {
		return invalid("days", "must be between %d and %d", MinDays, MaxDays)
	}
	return nil
}

type MetricsOption func(*MetricsService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MetricsOption {
	return func(s *MetricsService) {
		s.now = now
	}
}

type MetricsService struct {
	repo     AggregateReader
	now      func() time.Time
	summary  cache.Operation[Query, types.Summary]
	timeline cache.Operation[Query, []types.DailyAggregate]
}

// NewMetricsService builds the metrics reads, memoized through cm. A nil or
// disconnected cm leaves them uncached.
func NewMetricsService(repo AggregateReader, cm *cache.Manager, opts ...MetricsOption) *MetricsService {
	s := &MetricsService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.summary = cache.Memoize(cm, cache.Pattern[Query](SummaryKeyPattern), SummaryTTL, s.computeSummary)
	s.timeline = cache.Memoize(cm, cache.Pattern[Query](TimelineKeyPattern), TimelineTTL, s.computeTimeline)

	return s
}

// Summary returns volume totals for the owner's last days days.
func (s *MetricsService) Summary(ctx context.Context, ownerID uuid.UUID, days int) (types.Summary, error) {
	q := Query{ownerID, days}
	if err := q.validate(); err != nil {
		return types.Summary{}, err
	}
	return s.summary(ctx, q)
}

// Timeline returns days+1 daily rows ending today, oldest first.
func (s *MetricsService) Timeline(ctx context.Context, ownerID uuid.UUID, days int) ([]types.DailyAggregate, error) {
	q := Query{ownerID, days}
	if err := q.validate(); err != nil {
		return nil, err
	}
	return s.timeline(ctx, q)
}

func (s *MetricsService) computeSummary(ctx context.Context, q Query) (types.Summary, error) {
	rows, err := s.computeTimeline(ctx, q)
	if err != nil {
		return types.Summary{}, err
	}
	return timeseries.Summarize(rows), nil
}

func (s *MetricsService) computeTimeline(ctx context.Context, q Query) ([]types.DailyAggregate, error) {
	start, end := timeseries.Window(timeseries.Today(s.now()), q.Days)

	rows, err := s.repo.FetchDailyAggregates(ctx, q.OwnerID, start.In(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("fetch daily aggregates: %w", err)
	}

	return timeseries.Densify(rows, start, end)
}
