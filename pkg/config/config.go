// Package config loads archflow settings from a TOML file and the
// environment.
//
// Settings are resolved in order: built-in defaults, then the config file,
// then environment variables. Variables may also come from a .env file in
// the working directory; the process environment wins over it. Command-line
// flags are applied last by the CLI.
//
// # File Format
//
//	[service]
//	url = "http://localhost:5000/api"
//	token = ""
//	timeout = "90s"
//
//	[layout]
//	radius = 180.0
//	strength = 1.0
//	max_steps = 300
//	amplification = 5.0
//
//	[cache]
//	backend = "file"      # file, none, redis, mongo, sqlite, postgres
//	ttl = "24h"
//
//	[server]
//	addr = ":8080"
//	fps = 60
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/archflow/pkg/cache"
	"github.com/matzehuels/archflow/pkg/errors"
	"github.com/matzehuels/archflow/pkg/integrations/ideas"
	"github.com/matzehuels/archflow/pkg/layout/repulsion"
)

const appName = "archflow"

// Environment variables that override file settings.
const (
	EnvAPIURL      = "ARCHFLOW_API_URL"
	EnvToken       = "ARCHFLOW_TOKEN"
	EnvCache       = "ARCHFLOW_CACHE"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvMongoURI    = "MONGO_URI"
	EnvPostgresDSN = "POSTGRES_DSN"
	EnvFPS         = "ARCHFLOW_FPS"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// Server defaults.
const (
	DefaultAddr = ":8080"
	DefaultFPS  = 60
	MaxFPS      = 240
)

// Config is the complete archflow configuration.
type Config struct {
	Service ServiceConfig    `toml:"service"`
	Layout  repulsion.Config `toml:"layout"`
	Cache   CacheConfig      `toml:"cache"`
	Server  ServerConfig     `toml:"server"`
}

// ServiceConfig locates the generation service.
type ServiceConfig struct {
	URL     string        `toml:"url"`
	Token   string        `toml:"token"`
	Timeout time.Duration `toml:"timeout"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"`
	TTL           time.Duration `toml:"ttl"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPrefix   string        `toml:"redis_prefix"`
	MongoURI      string        `toml:"mongo_uri"`
	MongoDatabase string        `toml:"mongo_database"`
	SQLitePath    string        `toml:"sqlite_path"`
	PostgresDSN   string        `toml:"postgres_dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
	FPS  int    `toml:"fps"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			URL:     ideas.DefaultBaseURL,
			Timeout: ideas.DefaultTimeout,
		},
		Layout: repulsion.DefaultConfig(),
		Cache: CacheConfig{
			Backend:       cache.BackendFile,
			TTL:           cache.TTLIdea,
			RedisPrefix:   appName + ":",
			MongoDatabase: appName,
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
			FPS:  DefaultFPS,
		},
	}
}

// DefaultPath returns the config file location using the XDG standard
// (~/.config/archflow/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load resolves the configuration. An explicit path must exist; with an
// empty path the default location is read if present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err) && !explicit:
		case os.IsNotExist(err):
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		case err != nil:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := cfg.decode(data); err != nil {
				return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s", path)
			}
		}
	}

	lookup, err := EnvLookup(DotEnvFile)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvLookup returns a lookup over the process environment that falls back
// to the variables in dotenv. A missing dotenv file is not an error.
func EnvLookup(dotenv string) (func(string) (string, bool), error) {
	vars, err := godotenv.Read(dotenv)
	switch {
	case os.IsNotExist(err):
		return os.LookupEnv, nil
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "env file %s", dotenv)
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}, nil
}

// Parse decodes TOML data on top of the defaults, without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides settings from environment variables looked up through
// lookup (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.Service.URL = v
	}
	if v, ok := lookup(EnvToken); ok && v != "" {
		c.Service.Token = v
	}
	if v, ok := lookup(EnvCache); ok && v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cache.RedisAddr = v
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Cache.MongoURI = v
	}
	if v, ok := lookup(EnvPostgresDSN); ok && v != "" {
		c.Cache.PostgresDSN = v
	}
	if v, ok := lookup(EnvFPS); ok && v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, EnvFPS)
		}
		c.Server.FPS = fps
	}
	return nil
}

// Validate checks the configuration for values no component can run with.
func (c Config) Validate() error {
	if c.Layout.Radius <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.radius must be positive")
	}
	if c.Layout.MaxSteps <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.max_steps must be positive")
	}
	if c.Layout.Strength < 0 || c.Layout.Amplification < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout.strength and layout.amplification must not be negative")
	}
	if !slices.Contains(cache.Backends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown cache backend %q (must be one of: %s)", c.Cache.Backend, strings.Join(cache.Backends, ", "))
	}
	if c.Cache.Backend == cache.BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
	}
	if c.Cache.Backend == cache.BackendMongo && c.Cache.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.mongo_uri is required for the mongo backend")
	}
	if c.Cache.Backend == cache.BackendPostgres && c.Cache.PostgresDSN == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.postgres_dsn is required for the postgres backend")
	}
	if c.Service.URL != "" {
		if err := errors.ValidateURL(c.Service.URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "service.url")
		}
	}
	if c.Service.Timeout < 0 || c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "durations must not be negative")
	}
	if c.Server.FPS <= 0 || c.Server.FPS > MaxFPS {
		return errors.New(errors.ErrCodeInvalidConfig, "server.fps must be between 1 and %d", MaxFPS)
	}
	return nil
}

// FrameInterval returns the live-simulation frame period for Server.FPS.
func (c Config) FrameInterval() time.Duration {
	fps := c.Server.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// CacheOptions returns the cache backend selection. dir is used when the
// config names no directory.
func (c Config) CacheOptions(dir string) cache.Options {
	if c.Cache.Dir != "" {
		dir = c.Cache.Dir
	}
	return cache.Options{
		Backend:       c.Cache.Backend,
		Dir:           dir,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPrefix:   c.Cache.RedisPrefix,
		MongoURI:      c.Cache.MongoURI,
		MongoDatabase: c.Cache.MongoDatabase,
		SQLitePath:    c.Cache.SQLitePath,
		PostgresDSN:   c.Cache.PostgresDSN,
	}
}

// IdeasOptions returns generation client options. The cache is supplied by
// the caller.
func (c Config) IdeasOptions(ch cache.Cache) ideas.Options {
	opts := ideas.Options{
		BaseURL: c.Service.URL,
		Cache:   ch,
		TTL:     c.Cache.TTL,
		Timeout: c.Service.Timeout,
	}
	if c.Service.Token != "" {
		opts.Tokens = ideas.StaticToken(c.Service.Token)
	}
	return opts
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// WriteFile writes c to path, creating parent directories.
func (c Config) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
