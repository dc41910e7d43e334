// Package types
package types

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

type Exercise struct {
	Name        string `json:"name"`
	MuscleGroup string `json:"muscle_group"`
}

type Workout struct {
	WorkoutID   uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	PerformedAt time.Time `json:"performed_at"`
	Sets        int       `json:"sets"`
	Reps        int       `json:"reps"`
	Weight      float64   `json:"weight"`
	TotalVolume float64   `json:"total_volume"`
	Exercise    Exercise  `json:"exercise"`
}

type WorkoutInput struct {
	ExerciseName string  `json:"exercise_name"`
	MuscleGroup  string  `json:"muscle_group"`
	Sets         int     `json:"sets"`
	Reps         int     `json:"reps"`
	Weight       float64 `json:"weight"`
}

// Volume is the training volume of a single workout.
func (in WorkoutInput) Volume() float64 {
	return float64(in.Sets*in.Reps) * in.Weight
}

// DailyAggregate is one calendar day of workout volume. Avg is nil on days
// without workouts.
type DailyAggregate struct {
	Date  civil.Date `json:"date"`
	Count int        `json:"workouts_count"`
	Sum   float64    `json:"total_volume"`
	Avg   *float64   `json:"avg_volume"`
}

type Summary struct {
	TotalVolume   float64 `json:"total_volume"`
	AvgVolume     float64 `json:"avg_volume"`
	WorkoutsCount int     `json:"workouts_count"`
}

type WorkoutRecorded struct {
	WorkoutID   uuid.UUID `json:"workout_id"`
	UserID      uuid.UUID `json:"user_id"`
	PerformedAt time.Time `json:"performed_at"`
	TotalVolume float64   `json:"total_volume"`
}
