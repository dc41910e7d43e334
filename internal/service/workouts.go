package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
	"github.com/rs/zerolog"
)

const (
	DefaultMuscleGroup = "general"
	DefaultPageSize    = 10
	MaxPageSize        = 100
)

type WorkoutStore interface {
	CreateWorkout(ctx context.Context, userID uuid.UUID, in types.WorkoutInput, performedAt time.Time) (*types.Workout, error)
	ListWorkouts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]types.Workout, error)
}

// Invalidator evicts an owner's cached aggregates.
type Invalidator interface {
	Invalidate(ctx context.Context, ownerID string) int
}

type Publisher interface {
	PublishWorkoutRecorded(ctx context.Context, ev types.WorkoutRecorded) error
}

type WorkoutService struct {
	store  WorkoutStore
	inv    Invalidator
	pub    Publisher
	now    func() time.Time
	logger zerolog.Logger
}

func NewWorkoutService(store WorkoutStore, inv Invalidator, pub Publisher, logger zerolog.Logger) *WorkoutService {
	return &WorkoutService{
		store:  store,
		inv:    inv,
		pub:    pub,
		now:    time.Now,
		logger: logger,
	}
}

// Record persists a workout, then evicts the owner's cached metrics and
// announces the write. Nothing is evicted when the write fails.
func (s *WorkoutService) Record(ctx context.Context, ownerID uuid.UUID, in types.WorkoutInput) (*types.Workout, error) {
	if ownerID == uuid.Nil {
		return nil, invalid("user_id", "must be set")
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	w, err := s.store.CreateWorkout(ctx, ownerID, in, s.now())
	if err != nil {
		return nil, err
	}

	// the write is committed; finish the follow-ups even if the client left
	ctx = context.WithoutCancel(ctx)

	if s.inv != nil {
		s.inv.Invalidate(ctx, ownerID.String())
	}

	if s.pub != nil {
		ev := types.WorkoutRecorded{
			WorkoutID:   w.WorkoutID,
			UserID:      w.UserID,
			PerformedAt: w.PerformedAt,
			TotalVolume: w.TotalVolume,
		}
		if err := s.pub.PublishWorkoutRecorded(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("workout_id", w.WorkoutID.String()).Msg("failed to publish workout event")
		}
	}

	return w, nil
}

// List returns a page of the owner's workouts, newest first. A zero limit
// means the default page size.
func (s *WorkoutService) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]types.Workout, error) {
	if ownerID == uuid.Nil {
		return nil, invalid("user_id", "must be set")
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, invalid("limit", "must be between 1 and %d", MaxPageSize)
	}
	if offset < 0 {
		return nil, invalid("offset", "must not be negative")
	}

	return s.store.ListWorkouts(ctx, ownerID, limit, offset)
}

func normalize(in types.WorkoutInput) (types.WorkoutInput, error) {
	in.ExerciseName = strings.TrimSpace(in.ExerciseName)
	in.MuscleGroup = strings.TrimSpace(in.MuscleGroup)
	if in.MuscleGroup == "" {
		in.MuscleGroup = DefaultMuscleGroup
	}

	switch {
	case in.ExerciseName == "" || utf8.RuneCountInString(in.ExerciseName) > 100:
		return in, invalid("exercise_name", "must be 1-100 characters")
	case utf8.RuneCountInString(in.MuscleGroup) > 50:
		return in, invalid("muscle_group", "must be 1-50 characters")
	case in.Sets < 1 || in.Sets > 50:
		return in, invalid("sets", "must be between 1 and 50")
	case in.Reps < 1 || in.Reps > 200:
		return in, invalid("reps", "must be between 1 and 200")
	case in.Weight < 0:
		return in, invalid("weight", "must not be negative")
	}

	return in, nil
}
