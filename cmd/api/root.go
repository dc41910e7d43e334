package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/ntentasd/fitmetrics-api/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var v = config.New()

var rootCmd = &cobra.Command{
	Use:   "fitmetrics-api",
	Short: "Workout tracking API with cached volume metrics",
	Long: `fitmetrics-api records workouts in ScyllaDB and serves per-user volume
summaries and daily timelines, cached in Valkey or Memcached.

Every flag can also be set through a FITMETRICS_ environment variable,
e.g. FITMETRICS_CACHE_DRIVER=memcached.

Examples:
  # Create the keyspace and tables
  fitmetrics-api migrate --scylla-nodes scylla:9042

  # Serve on :8080 with a Valkey cluster
  VALKEY_NODES=valkey-0:6379,valkey-1:6379 fitmetrics-api serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Flags())
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.StringSlice("scylla-nodes", []string{"localhost:9042"}, "ScyllaDB contact points")
	f.String("scylla-keyspace", "fitmetrics", "ScyllaDB keyspace")
}

// bindFlags exposes every flag to viper under its snake_case key, so that an
// explicitly set flag wins over the environment.
func bindFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	return err
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if lvl <= zerolog.DebugLevel {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "fitmetrics-api").
		Logger()
}
