package routes

import (
	"context"

	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
	"github.com/rs/zerolog"
)

type MetricsReader interface {
	Summary(ctx context.Context, ownerID uuid.UUID, days int) (types.Summary, error)
	Timeline(ctx context.Context, ownerID uuid.UUID, days int) ([]types.DailyAggregate, error)
}

type WorkoutRecorder interface {
	Record(ctx context.Context, ownerID uuid.UUID, in types.WorkoutInput) (*types.Workout, error)
	List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]types.Workout, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type CacheHealth interface {
	HealthCheck(ctx context.Context) bool
}

type App struct {
	Metrics  MetricsReader
	Workouts WorkoutRecorder
	Store    Pinger
	// Cache is nil when caching is disabled, which drops it from /healthz.
	Cache  CacheHealth
	logger zerolog.Logger
}

func New(metrics MetricsReader, workouts WorkoutRecorder, store Pinger, cache CacheHealth, logger zerolog.Logger) *App {
	return &App{
		Metrics:  metrics,
		Workouts: workouts,
		Store:    store,
		Cache:    cache,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}
