package db

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/internal/metrics"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
)

// CreateWorkout persists one workout performed at performedAt.
func (db *DB) CreateWorkout(
	ctx context.Context,
	userID uuid.UUID,
	in types.WorkoutInput,
	performedAt time.Time,
) (*types.Workout, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	w := types.Workout{
		WorkoutID:   uuid.New(),
		UserID:      userID,
		PerformedAt: performedAt.UTC().Truncate(time.Millisecond),
		Sets:        in.Sets,
		Reps:        in.Reps,
		Weight:      in.Weight,
		TotalVolume: in.Volume(),
		Exercise: types.Exercise{
			Name:        in.ExerciseName,
			MuscleGroup: in.MuscleGroup,
		},
	}

	start := time.Now()
	err := db.Session.Query(`
INSERT INTO workouts_by_user (
    user_id, performed_at, workout_id, exercise_name, muscle_group,
    sets, reps, weight, total_volume
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		gocql.UUID(w.UserID),
		w.PerformedAt,
		gocql.UUID(w.WorkoutID),
		w.Exercise.Name,
		w.Exercise.MuscleGroup,
		w.Sets,
		w.Reps,
		w.Weight,
		w.TotalVolume,
	).WithContext(ctx).Exec()
	if err != nil {
		metrics.DbErrorsTotal.WithLabelValues("create_workout").Inc()
		return nil, fmt.Errorf("failed to insert workout: %w", err)
	}
	metrics.DbWriteLatencySeconds.WithLabelValues("create_workout").Observe(time.Since(start).Seconds())

	return &w, nil
}

// ListWorkouts returns a page of the user's workouts, newest first.
func (db *DB) ListWorkouts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]types.Workout, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	iter := db.Session.Query(`
SELECT performed_at, workout_id, exercise_name, muscle_group, sets, reps, weight, total_volume
FROM workouts_by_user
WHERE user_id = ?
LIMIT ?
`, gocql.UUID(userID), limit+offset).WithContext(ctx).Iter()

	results := make([]types.Workout, 0, limit)

	var (
		w         types.Workout
		workoutID gocql.UUID
		skipped   int
	)
	for iter.Scan(
		&w.PerformedAt,
		&workoutID,
		&w.Exercise.Name,
		&w.Exercise.MuscleGroup,
		&w.Sets,
		&w.Reps,
		&w.Weight,
		&w.TotalVolume,
	) {
		// no OFFSET in CQL
		if skipped < offset {
			skipped++
			continue
		}
		w.WorkoutID = uuid.UUID(workoutID)
		w.UserID = userID
		results = append(results, w)
	}

	if err := iter.Close(); err != nil {
		metrics.DbErrorsTotal.WithLabelValues("list_workouts").Inc()
		return nil, fmt.Errorf("failed to list workouts for %s: %w", userID, err)
	}
	metrics.DbReadLatencySeconds.WithLabelValues("list_workouts").Observe(time.Since(start).Seconds())

	return results, nil
}
