package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Relay sinks.
const (
	RelayNone  = "none"
	RelayKafka = "kafka"
	RelayAMQP  = "amqp"
)

// Config stores service settings.
type Config struct {
	Port      int
	LogLevel  string
	Storage   string
	SeedFile  string
	DB        DB
	Dispatch  Dispatch
	Hub       Hub
	Tracking  Tracking
	ReadRetry ReadRetry
	Kafka     Kafka
	AMQP      AMQP
	Relay     string
	RateLimit RateLimit
	Pprof     Pprof
}

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns a postgres connection URL.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Dispatch stores order handling settings.
type Dispatch struct {
	OperationTimeout time.Duration
	DeliveryFee      decimal.Decimal
	MaxRadiusMeters  float64
}

// Hub stores live connection settings.
type Hub struct {
	HeartbeatInterval time.Duration
	Grace             time.Duration
	QueueSize         int
	WriteTimeout      time.Duration
}

// Tracking stores courier location settings.
type Tracking struct {
	Retention time.Duration
}

// ReadRetry stores the backoff for transient read failures.
type ReadRetry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Kafka stores broker settings. Empty Brokers disables Kafka.
type Kafka struct {
	Brokers     []string
	GroupID     string
	IntakeTopic string
	EventsTopic string
}

// AMQP stores RabbitMQ settings. Empty URL disables AMQP.
type AMQP struct {
	URL      string
	Exchange string
}

// RateLimit stores token bucket settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Pprof stores debug server settings. Empty Addr disables it.
type Pprof struct {
	Addr string
	User string
	Pass string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	var errs []error
	env := envReader{errs: &errs}

	cfg := &Config{
		Port:     env.int("PORT", defaultPort),
		LogLevel: env.string("LOG_LEVEL", "info"),
		Storage:  strings.ToLower(env.string("STORAGE", defaultStorage)),
		SeedFile: env.string("BUSINESS_SEED_FILE", ""),
		DB: DB{
			Host: env.string("POSTGRES_HOST", defaultDB.Host),
			Port: env.string("POSTGRES_PORT", defaultDB.Port),
			User: env.string("POSTGRES_USER", defaultDB.User),
			Pass: env.string("POSTGRES_PASSWORD", defaultDB.Pass),
			Name: env.string("POSTGRES_DB", defaultDB.Name),
		},
		Dispatch: Dispatch{
			OperationTimeout: env.duration("DISPATCH_OPERATION_TIMEOUT", defaultDispatch.OperationTimeout),
			DeliveryFee:      env.decimal("DISPATCH_DELIVERY_FEE", defaultDispatch.DeliveryFee),
			MaxRadiusMeters:  env.float("DISPATCH_MAX_RADIUS_METERS", defaultDispatch.MaxRadiusMeters),
		},
		Hub: Hub{
			HeartbeatInterval: env.duration("HUB_HEARTBEAT_INTERVAL", defaultHub.HeartbeatInterval),
			Grace:             env.duration("HUB_GRACE", defaultHub.Grace),
			QueueSize:         env.int("HUB_QUEUE_SIZE", defaultHub.QueueSize),
			WriteTimeout:      env.duration("HUB_WRITE_TIMEOUT", defaultHub.WriteTimeout),
		},
		Tracking: Tracking{
			Retention: env.duration("TRACKING_RETENTION", defaultTracking.Retention),
		},
		ReadRetry: ReadRetry{
			MaxAttempts: env.int("READ_RETRY_MAX_ATTEMPTS", defaultReadRetry.MaxAttempts),
			BaseDelay:   env.duration("READ_RETRY_BASE_DELAY", defaultReadRetry.BaseDelay),
			MaxDelay:    env.duration("READ_RETRY_MAX_DELAY", defaultReadRetry.MaxDelay),
		},
		Kafka: Kafka{
			Brokers:     env.list("KAFKA_BROKERS"),
			GroupID:     env.string("KAFKA_GROUP_ID", defaultKafka.GroupID),
			IntakeTopic: env.string("KAFKA_INTAKE_TOPIC", defaultKafka.IntakeTopic),
			EventsTopic: env.string("KAFKA_EVENTS_TOPIC", defaultKafka.EventsTopic),
		},
		AMQP: AMQP{
			URL:      env.string("AMQP_URL", ""),
			Exchange: env.string("AMQP_EXCHANGE", defaultAMQP.Exchange),
		},
		Relay: strings.ToLower(env.string("RELAY_SINK", RelayNone)),
		RateLimit: RateLimit{
			Enabled:    env.bool("RATE_LIMIT_ENABLED", defaultRateLimit.Enabled),
			Rate:       env.float("RATE_LIMIT_RATE", defaultRateLimit.Rate),
			Burst:      env.int("RATE_LIMIT_BURST", defaultRateLimit.Burst),
			TTL:        env.duration("RATE_LIMIT_TTL", defaultRateLimit.TTL),
			MaxBuckets: env.int("RATE_LIMIT_MAX_BUCKETS", defaultRateLimit.MaxBuckets),
		},
		Pprof: Pprof{
			Addr: env.string("PPROF_ADDR", ""),
			User: env.string("PPROF_USER", ""),
			Pass: env.string("PPROF_PASSWORD", ""),
		},
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage backend: memory or postgres")
	pflag.StringVar(&cfg.Relay, "relay", cfg.Relay, "event relay sink: none, kafka or amqp")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Port > 0 && c.Port <= 65535, "invalid port: %d", c.Port)
	check(c.Storage == StorageMemory || c.Storage == StoragePostgres, "invalid storage: %q", c.Storage)
	if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid postgres port: %q", c.DB.Port))
	}
	check(c.Dispatch.OperationTimeout > 0, "dispatch operation timeout must be positive")
	check(!c.Dispatch.DeliveryFee.IsNegative(), "delivery fee must not be negative")
	check(c.Dispatch.MaxRadiusMeters > 0, "max radius must be positive")
	check(c.Hub.HeartbeatInterval > 0, "hub heartbeat interval must be positive")
	check(c.Hub.Grace >= c.Hub.HeartbeatInterval, "hub grace must be at least the heartbeat interval")
	check(c.Hub.QueueSize > 0, "hub queue size must be positive")
	check(c.Hub.WriteTimeout > 0, "hub write timeout must be positive")
	check(c.Tracking.Retention > 0, "tracking retention must be positive")
	check(c.ReadRetry.MaxAttempts >= 1, "read retry attempts must be at least 1")
	check(c.ReadRetry.BaseDelay >= 0 && c.ReadRetry.MaxDelay >= c.ReadRetry.BaseDelay, "invalid read retry delays")

	switch c.Relay {
	case RelayNone:
	case RelayKafka:
		check(len(c.Kafka.Brokers) > 0, "relay kafka requires KAFKA_BROKERS")
	case RelayAMQP:
		check(c.AMQP.URL != "", "relay amqp requires AMQP_URL")
	default:
		errs = append(errs, fmt.Errorf("invalid relay sink: %q", c.Relay))
	}

	if c.RateLimit.Enabled {
		check(c.RateLimit.Rate > 0, "rate limit rate must be positive")
		check(c.RateLimit.Burst > 0, "rate limit burst must be positive")
		check(c.RateLimit.TTL >= 0, "rate limit ttl must not be negative")
		check(c.RateLimit.MaxBuckets >= 0, "rate limit max buckets must not be negative")
	}
	return errs
}

// envReader reads typed values and records parse failures.
type envReader struct {
	errs *[]error
}

func (e envReader) raw(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (e envReader) fail(key, v string, err error) {
	*e.errs = append(*e.errs, fmt.Errorf("invalid %s=%q: %w", key, v, err))
}

func (e envReader) string(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e envReader) int(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e envReader) float(key string, def float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e envReader) bool(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e envReader) decimal(key string, def decimal.Decimal) decimal.Decimal {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e envReader) list(key string) []string {
	v, ok := e.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
