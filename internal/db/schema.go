package db

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

const createWorkoutsByUser = `
CREATE TABLE IF NOT EXISTS workouts_by_user (
    user_id uuid,
    performed_at timestamp,
    workout_id uuid,
    exercise_name text,
    muscle_group text,
    sets int,
    reps int,
    weight double,
    total_volume double,
    PRIMARY KEY ((user_id), performed_at, workout_id)
) WITH CLUSTERING ORDER BY (performed_at DESC, workout_id ASC)
`

// CreateKeyspace creates the keyspace with SimpleStrategy replication.
func CreateKeyspace(nodes []string, keyspace string, replication int) error {
	cluster := gocql.NewCluster(nodes...)
	cluster.DisableInitialHostLookup = true
	cluster.Timeout = 5 * time.Second

	sess, err := cluster.CreateSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	stmt := fmt.Sprintf(`
CREATE KEYSPACE IF NOT EXISTS %s
WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}
`, keyspace, replication)

	return sess.Query(stmt).Exec()
}

// Migrate creates the tables the store reads and writes.
func (db *DB) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.Session.Query(createWorkoutsByUser).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create workouts_by_user: %w", err)
	}
	return nil
}
