package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
)

// memStore is an in-memory workout store that also answers aggregate
// queries, counting how often it is asked.
type memStore struct {
	mu         sync.Mutex
	workouts   []types.Workout
	aggregates int
	failCreate error
	failFetch  error
}

func (s *memStore) CreateWorkout(ctx context.Context, userID uuid.UUID, in types.WorkoutInput, performedAt time.Time) (*types.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate != nil {
		return nil, s.failCreate
	}

	w := types.Workout{
		WorkoutID:   uuid.New(),
		UserID:      userID,
		PerformedAt: performedAt,
		Sets:        in.Sets,
		Reps:        in.Reps,
		Weight:      in.Weight,
		TotalVolume: in.Volume(),
		Exercise:    types.Exercise{Name: in.ExerciseName, MuscleGroup: in.MuscleGroup},
	}
	s.workouts = append(s.workouts, w)
	return &w, nil
}

func (s *memStore) ListWorkouts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]types.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var own []types.Workout
	for _, w := range s.workouts {
		if w.UserID == userID {
			own = append(own, w)
		}
	}
	sort.Slice(own, func(i, j int) bool {
		return own[i].PerformedAt.After(own[j].PerformedAt)
	})

	if offset >= len(own) {
		return []types.Workout{}, nil
	}
	own = own[offset:]
	if len(own) > limit {
		own = own[:limit]
	}
	return own, nil
}

func (s *memStore) FetchDailyAggregates(ctx context.Context, userID uuid.UUID, from time.Time) ([]types.DailyAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.aggregates++
	if s.failFetch != nil {
		return nil, s.failFetch
	}

	byDay := map[civil.Date]*types.DailyAggregate{}
	for _, w := range s.workouts {
		if w.UserID != userID || w.PerformedAt.Before(from) {
			continue
		}
		d := civil.DateOf(w.PerformedAt.UTC())
		if byDay[d] == nil {
			byDay[d] = &types.DailyAggregate{Date: d}
		}
		byDay[d].Count++
		byDay[d].Sum += w.TotalVolume
	}

	out := make([]types.DailyAggregate, 0, len(byDay))
	for _, row := range byDay {
		avg := row.Sum / float64(row.Count)
		row.Avg = &avg
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregates
}

func (s *memStore) add(userID uuid.UUID, at time.Time, volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workouts = append(s.workouts, types.Workout{
		WorkoutID:   uuid.New(),
		UserID:      userID,
		PerformedAt: at,
		TotalVolume: volume,
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.WorkoutRecorded
	err    error
}

func (p *recordingPublisher) PublishWorkoutRecorded(ctx context.Context, ev types.WorkoutRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type recordingInvalidator struct {
	owners []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, ownerID string) int {
	r.owners = append(r.owners, ownerID)
	return 0
}

var errDB = errors.New("scylla: no hosts available")
