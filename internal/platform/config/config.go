// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Server       Server
	Database     Database
	Redis        RedisConfig
	Kafka        Kafka
	Registration Registration
	RemoteAPI    RemoteAPI
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AdminToken      string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Database selects the postgres store. An empty URL keeps records in memory.
type Database struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig selects the Redis locker. An empty URL uses the in-process locker.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit outbox relay. No brokers disables the relay.
type Kafka struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
	BatchSize    int
}

// Registration holds the coordinator settings.
type Registration struct {
	DefaultBrand  string
	StoreTimeout  time.Duration
	LockTTL       time.Duration
	FinishTimeout time.Duration
	ShipTo        string
	LanguageCode  string
	TimeZone      string
}

// RemoteAPI tunes the remote registration client.
type RemoteAPI struct {
	Latency           time.Duration
	BreakerFailures   int
	BreakerSuccesses  int
	BreakerProbeEvery time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	r := reader{lookup: os.LookupEnv}
	cfg := Config{
		Server: Server{
			Addr:            r.str("CARREG_ADDR", ":8080"),
			JWTSigningKey:   r.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       r.str("JWT_ISSUER", "carreg"),
			JWTAudience:     r.str("JWT_AUDIENCE", "carreg-api"),
			AdminToken:      r.str("CARREG_ADMIN_TOKEN", ""),
			LogLevel:        r.str("LOG_LEVEL", "info"),
			RequestTimeout:  r.duration("CARREG_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: r.duration("CARREG_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: Database{
			URL:          r.str("DATABASE_URL", ""),
			MaxOpenConns: r.integer("DATABASE_MAX_OPEN_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:      r.list("KAFKA_BROKERS"),
			AuditTopic:   r.str("KAFKA_AUDIT_TOPIC", "carreg.audit"),
			PollInterval: r.duration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    r.integer("OUTBOX_BATCH_SIZE", 100),
		},
		Registration: Registration{
			DefaultBrand:  r.str("CARREG_DEFAULT_BRAND", "Toyota"),
			StoreTimeout:  r.duration("CARREG_STORE_TIMEOUT", 5*time.Second),
			LockTTL:       r.duration("CARREG_LOCK_TTL", 2*time.Minute),
			FinishTimeout: r.duration("CARREG_FINISH_TIMEOUT", 30*time.Second),
			ShipTo:        r.str("CARREG_SHIP_TO", ""),
			LanguageCode:  r.str("CARREG_LANGUAGE", "en"),
			TimeZone:      r.str("CARREG_TIMEZONE", "UTC"),
		},
		RemoteAPI: RemoteAPI{
			Latency:           r.duration("REMOTE_API_LATENCY", 50*time.Millisecond),
			BreakerFailures:   r.integer("REMOTE_BREAKER_FAILURES", 5),
			BreakerSuccesses:  r.integer("REMOTE_BREAKER_SUCCESSES", 2),
			BreakerProbeEvery: r.duration("REMOTE_BREAKER_PROBE_INTERVAL", 5*time.Second),
		},
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate checks settings that only make sense together. A vehicle lock
// must outlive the remote call plus the finish that follows it.
func (c Config) validate() error {
	minTTL := c.Registration.FinishTimeout + c.RemoteAPI.Latency
	if c.Registration.LockTTL <= minTTL {
		return fmt.Errorf("CARREG_LOCK_TTL: %s must exceed CARREG_FINISH_TIMEOUT plus REMOTE_API_LATENCY (%s)",
			c.Registration.LockTTL, minTTL)
	}
	return nil
}

// reader keeps the first parse error so FromEnv reports it once.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		r.fail(fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return d
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		r.fail(fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
