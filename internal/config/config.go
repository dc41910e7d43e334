// Package config loads the service configuration from flags and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "FITMETRICS"

const (
	CacheDriverValkey    = "valkey"
	CacheDriverMemcached = "memcached"
	CacheDriverNone      = "none"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	ScyllaNodes       []string
	ScyllaKeyspace    string
	ScyllaReplication int

	CacheDriver    string
	CachePrefix    string
	CacheTTL       time.Duration
	CachePoolSize  int
	CacheScanBatch int64
	CacheInterval  time.Duration
	ValkeyNodes    []string
	ValkeyService  string
	ValkeyPassword string
	MemcachedAddrs []string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	TempoEndpoint string
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("scylla_nodes", []string{"localhost:9042"})
	v.SetDefault("scylla_keyspace", "fitmetrics")
	v.SetDefault("scylla_replication", 1)
	v.SetDefault("cache_driver", CacheDriverValkey)
	v.SetDefault("cache_prefix", "fitmetrics")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_pool_size", 10)
	v.SetDefault("cache_scan_batch", 100)
	v.SetDefault("cache_interval", 15*time.Second)
	v.SetDefault("valkey_nodes", []string{})
	v.SetDefault("valkey_service", "")
	v.SetDefault("valkey_password", "")
	v.SetDefault("memcached_addrs", []string{"localhost:11211"})
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "fitmetrics.workouts")
	v.SetDefault("kafka_group", "fitmetrics-api")
	v.SetDefault("tempo_endpoint", "")
}

// New returns a viper instance reading FITMETRICS_* variables, with the
// unprefixed VALKEY_NODES, VALKEY_SERVICE, SCYLLA_NODES, KAFKA_BROKERS and
// TEMPO_ENDPOINT names still honoured.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	_ = v.BindEnv("valkey_nodes", EnvPrefix+"_VALKEY_NODES", "VALKEY_NODES")
	_ = v.BindEnv("valkey_service", EnvPrefix+"_VALKEY_SERVICE", "VALKEY_SERVICE")
	_ = v.BindEnv("scylla_nodes", EnvPrefix+"_SCYLLA_NODES", "SCYLLA_NODES")
	_ = v.BindEnv("kafka_brokers", EnvPrefix+"_KAFKA_BROKERS", "KAFKA_BROKERS")
	_ = v.BindEnv("tempo_endpoint", EnvPrefix+"_TEMPO_ENDPOINT", "TEMPO_ENDPOINT")

	return v
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPAddr:          v.GetString("http_addr"),
		LogLevel:          v.GetString("log_level"),
		ScyllaNodes:       list(v, "scylla_nodes"),
		ScyllaKeyspace:    v.GetString("scylla_keyspace"),
		ScyllaReplication: v.GetInt("scylla_replication"),
		CacheDriver:       strings.ToLower(v.GetString("cache_driver")),
		CachePrefix:       v.GetString("cache_prefix"),
		CacheTTL:          v.GetDuration("cache_ttl"),
		CachePoolSize:     v.GetInt("cache_pool_size"),
		CacheScanBatch:    v.GetInt64("cache_scan_batch"),
		CacheInterval:     v.GetDuration("cache_interval"),
		ValkeyNodes:       list(v, "valkey_nodes"),
		ValkeyService:     v.GetString("valkey_service"),
		ValkeyPassword:    v.GetString("valkey_password"),
		MemcachedAddrs:    list(v, "memcached_addrs"),
		KafkaBrokers:      list(v, "kafka_brokers"),
		KafkaTopic:        v.GetString("kafka_topic"),
		KafkaGroup:        v.GetString("kafka_group"),
		TempoEndpoint:     v.GetString("tempo_endpoint"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.CacheDriver {
	case CacheDriverValkey, CacheDriverMemcached, CacheDriverNone:
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.CacheDriver))
	}
	if c.CachePrefix == "" {
		errs = append(errs, errors.New("cache prefix must not be empty"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache ttl must be positive"))
	}
	if c.CacheInterval <= 0 {
		errs = append(errs, errors.New("cache interval must be positive"))
	}
	if len(c.ScyllaNodes) == 0 {
		errs = append(errs, errors.New("no scylla nodes configured"))
	}

	return errors.Join(errs...)
}

// list accepts both real lists and comma separated strings, since env
// variables only carry the latter.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// lookupHost is swapped in tests.
var lookupHost = net.LookupHost

// ValkeyAddrs resolves the Valkey node list: explicit nodes win, otherwise
// every address behind the service name on port 6379.
func (c *Config) ValkeyAddrs() ([]string, error) {
	if len(c.ValkeyNodes) > 0 {
		return c.ValkeyNodes, nil
	}

	if c.ValkeyService != "" {
		addrs, err := lookupHost(c.ValkeyService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", c.ValkeyService, err)
		}
		out := make([]string, 0, len(addrs))
		for _, ip := range addrs {
			out = append(out, net.JoinHostPort(ip, "6379"))
		}
		return out, nil
	}

	return nil, errors.New("no Valkey discovery env provided (VALKEY_NODES or VALKEY_SERVICE)")
}
