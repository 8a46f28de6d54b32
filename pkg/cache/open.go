package cache

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendNone     = "none"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Backends lists every backend name.
var Backends = []string{BackendFile, BackendNone, BackendRedis, BackendMongo, BackendSQLite, BackendPostgres}

// SQLiteFile is the database name used under Dir when no SQLite path is set.
const SQLiteFile = "cache.db"

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Dir           string // file
	RedisAddr     string // redis
	RedisPrefix   string // redis
	MongoURI      string // mongo
	MongoDatabase string // mongo
	SQLitePath    string // sqlite, defaults to Dir/cache.db
	PostgresDSN   string // postgres
}

// Open creates the backend named by opts.Backend. An empty backend means
// file when Dir is set and none otherwise.
func Open(ctx context.Context, opts Options) (Cache, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendNone
		if opts.Dir != "" {
			backend = BackendFile
		}
	}

	switch backend {
	case BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		if opts.Dir == "" {
			return nil, fmt.Errorf("file cache: no directory")
		}
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache: no address")
		}
		prefix := opts.RedisPrefix
		if prefix == "" {
			prefix = "archflow:"
		}
		c, err := NewRedisCache(ctx, opts.RedisAddr, prefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMongo:
		if opts.MongoURI == "" {
			return nil, fmt.Errorf("mongo cache: no uri")
		}
		db := opts.MongoDatabase
		if db == "" {
			db = "archflow"
		}
		c, err := NewMongoCache(ctx, opts.MongoURI, db)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			if opts.Dir == "" {
				return nil, fmt.Errorf("sqlite cache: no path")
			}
			path = filepath.Join(opts.Dir, SQLiteFile)
		}
		c, err := NewSQLiteCache(ctx, path)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres cache: no dsn")
		}
		c, err := NewPostgresCache(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
