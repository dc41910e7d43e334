// Package db is the Scylla-backed workout store.
package db

import (
	"context"
	"time"

	"github.com/gocql/gocql"
)

type DB struct {
	Session *gocql.Session
}

func New(sess *gocql.Session) *DB {
	return &DB{Session: sess}
}

// Connect opens a session against keyspace on the given nodes.
func Connect(nodes []string, keyspace string) (*DB, error) {
	cluster := gocql.NewCluster(nodes...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 2 * time.Second
	// single-node dev clusters advertise unreachable addresses
	cluster.DisableInitialHostLookup = true

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return New(sess), nil
}

func (db *DB) Close() {
	if db.Session != nil {
		db.Session.Close()
	}
}

// Ping runs a trivial query against the coordinator.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	return db.Session.Query(`SELECT now() FROM system.local`).WithContext(ctx).Exec()
}
