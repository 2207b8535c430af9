// Package config loads the service configuration from an HCL file, a .env
// file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"

	"github.com/lox/pokerrating/internal/equity"
	"github.com/lox/pokerrating/internal/retry"
)

// DefaultFile is read from the working directory when no --config is given
const DefaultFile = "pokerrating.hcl"

// Config is the complete service configuration
type Config struct {
	Server ServerSettings
	Oracle OracleSettings
	Store  StoreSettings
	Cache  CacheSettings
	Engine EngineSettings
}

// ServerSettings configures the REST listener
type ServerSettings struct {
	Address         string `hcl:"address,optional"`
	ShutdownTimeout string `hcl:"shutdown_timeout,optional"`
}

// OracleSettings configures the holdem calculator client
type OracleSettings struct {
	URL            string  `hcl:"url,optional"`
	ConnectTimeout string  `hcl:"connect_timeout,optional"`
	RequestTimeout string  `hcl:"request_timeout,optional"`
	Attempts       int     `hcl:"attempts,optional"`
	MinBackoff     string  `hcl:"min_backoff,optional"`
	MaxBackoff     string  `hcl:"max_backoff,optional"`
	RateLimit      float64 `hcl:"rate_limit,optional"`
	Burst          int     `hcl:"burst,optional"`
}

// StoreSettings selects and tunes the rating store
type StoreSettings struct {
	Driver        string `hcl:"driver,optional"` // sqlite, postgres or memory
	DSN           string `hcl:"dsn,optional"`
	DefaultRating int64  `hcl:"default_rating,optional"`
	RetryAttempts int    `hcl:"retry_attempts,optional"`
	RetryMinDelay string `hcl:"retry_min_delay,optional"`
	RetryMaxDelay string `hcl:"retry_max_delay,optional"`
	RetryMaxTotal string `hcl:"retry_max_total,optional"`
}

// CacheSettings selects the showdown percentage cache
type CacheSettings struct {
	Driver    string `hcl:"driver,optional"` // memory, redis or none
	RedisAddr string `hcl:"redis_addr,optional"`
	TTL       string `hcl:"ttl,optional"`
}

// EngineSettings tunes rating parallelism
type EngineSettings struct {
	Parallelism     int   `hcl:"parallelism,optional"`
	ConcurrentRules *bool `hcl:"concurrent_rules,optional"`
}

// fileConfig makes every block optional in the file
type fileConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Oracle *OracleSettings `hcl:"oracle,block"`
	Store  *StoreSettings  `hcl:"store,block"`
	Cache  *CacheSettings  `hcl:"cache,block"`
	Engine *EngineSettings `hcl:"engine,block"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	concurrent := true
	return &Config{
		Server: ServerSettings{
			Address:         ":8080",
			ShutdownTimeout: "5s",
		},
		Oracle: OracleSettings{
			URL:            "http://localhost:5000",
			ConnectTimeout: "10s",
			RequestTimeout: "120s",
			Attempts:       5,
			MinBackoff:     "100ms",
			MaxBackoff:     "500ms",
			RateLimit:      50,
			Burst:          10,
		},
		Store: StoreSettings{
			Driver:        "sqlite",
			DSN:           "data/pokerrating.db",
			DefaultRating: 10000,
			RetryAttempts: 50,
			RetryMinDelay: "200ms",
			RetryMaxDelay: "500ms",
			RetryMaxTotal: "5m",
		},
		Cache: CacheSettings{
			Driver: "memory",
			TTL:    "24h",
		},
		Engine: EngineSettings{
			Parallelism:     4,
			ConcurrentRules: &concurrent,
		},
	}
}

// Load reads filename (defaults when it does not exist), then applies .env
// and environment overrides
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		if err := cfg.loadFile(filename); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) loadFile(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if fc.Server != nil {
		setString(&c.Server.Address, fc.Server.Address)
		setString(&c.Server.ShutdownTimeout, fc.Server.ShutdownTimeout)
	}
	if o := fc.Oracle; o != nil {
		setString(&c.Oracle.URL, o.URL)
		setString(&c.Oracle.ConnectTimeout, o.ConnectTimeout)
		setString(&c.Oracle.RequestTimeout, o.RequestTimeout)
		setString(&c.Oracle.MinBackoff, o.MinBackoff)
		setString(&c.Oracle.MaxBackoff, o.MaxBackoff)
		setNumber(&c.Oracle.Attempts, o.Attempts)
		setNumber(&c.Oracle.RateLimit, o.RateLimit)
		setNumber(&c.Oracle.Burst, o.Burst)
	}
	if s := fc.Store; s != nil {
		setString(&c.Store.Driver, s.Driver)
		setString(&c.Store.DSN, s.DSN)
		setString(&c.Store.RetryMinDelay, s.RetryMinDelay)
		setString(&c.Store.RetryMaxDelay, s.RetryMaxDelay)
		setString(&c.Store.RetryMaxTotal, s.RetryMaxTotal)
		setNumber(&c.Store.DefaultRating, s.DefaultRating)
		setNumber(&c.Store.RetryAttempts, s.RetryAttempts)
	}
	if ch := fc.Cache; ch != nil {
		setString(&c.Cache.Driver, ch.Driver)
		setString(&c.Cache.RedisAddr, ch.RedisAddr)
		setString(&c.Cache.TTL, ch.TTL)
	}
	if e := fc.Engine; e != nil {
		setNumber(&c.Engine.Parallelism, e.Parallelism)
		if e.ConcurrentRules != nil {
			c.Engine.ConcurrentRules = e.ConcurrentRules
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNumber[T int | int64 | float64](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for key, dst := range map[string]*string{
		"POKERRATING_ADDR":         &c.Server.Address,
		"POKERRATING_ORACLE_URL":   &c.Oracle.URL,
		"POKERRATING_STORE_DRIVER": &c.Store.Driver,
		"POKERRATING_STORE_DSN":    &c.Store.DSN,
		"POKERRATING_REDIS_ADDR":   &c.Cache.RedisAddr,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if c.Cache.RedisAddr != "" {
		if _, ok := lookup("POKERRATING_REDIS_ADDR"); ok {
			c.Cache.Driver = "redis"
		}
	}
}

// Validate checks values and durations
func (c *Config) Validate() error {
	for name, d := range map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"oracle.connect_timeout":  c.Oracle.ConnectTimeout,
		"oracle.request_timeout":  c.Oracle.RequestTimeout,
		"oracle.min_backoff":      c.Oracle.MinBackoff,
		"oracle.max_backoff":      c.Oracle.MaxBackoff,
		"store.retry_min_delay":   c.Store.RetryMinDelay,
		"store.retry_max_delay":   c.Store.RetryMaxDelay,
		"store.retry_max_total":   c.Store.RetryMaxTotal,
		"cache.ttl":               c.Cache.TTL,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %s: %q", name, d)
		}
	}
	if c.Oracle.URL == "" {
		return errors.New("oracle url must be set")
	}
	if c.Oracle.Attempts < 1 {
		return fmt.Errorf("oracle attempts must be positive: %d", c.Oracle.Attempts)
	}
	if c.Oracle.RateLimit < 0 {
		return fmt.Errorf("oracle rate limit must not be negative: %v", c.Oracle.RateLimit)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store %s: dsn must be set", c.Store.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}
	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("store retry attempts must be positive: %d", c.Store.RetryAttempts)
	}
	switch c.Cache.Driver {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache redis: redis_addr must be set")
		}
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}
	if c.Engine.Parallelism < 1 || c.Engine.Parallelism > 64 {
		return fmt.Errorf("engine parallelism must be between 1 and 64: %d", c.Engine.Parallelism)
	}
	return nil
}

// Duration parses a validated duration field
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ConcurrentRules reports whether rules run in parallel per turn
func (c *Config) ConcurrentRules() bool {
	return c.Engine.ConcurrentRules == nil || *c.Engine.ConcurrentRules
}

// OracleClient builds the equity client settings
func (c *Config) OracleClient() equity.ClientConfig {
	return equity.ClientConfig{
		Endpoint:       c.Oracle.URL,
		ConnectTimeout: Duration(c.Oracle.ConnectTimeout),
		RequestTimeout: Duration(c.Oracle.RequestTimeout),
		Retry: retry.Policy{
			Attempts: c.Oracle.Attempts,
			MinDelay: Duration(c.Oracle.MinBackoff),
			MaxDelay: Duration(c.Oracle.MaxBackoff),
		},
		RateLimit: c.Oracle.RateLimit,
		Burst:     c.Oracle.Burst,
	}
}

// ConflictPolicy builds the optimistic locking retry policy
func (c *Config) ConflictPolicy() retry.Policy {
	return retry.Policy{
		Attempts:   c.Store.RetryAttempts,
		MinDelay:   Duration(c.Store.RetryMinDelay),
		MaxDelay:   Duration(c.Store.RetryMaxDelay),
		MaxElapsed: Duration(c.Store.RetryMaxTotal),
		Jitter:     true,
	}
}
