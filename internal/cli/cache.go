package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/archflow/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response and layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached generation, layout and artifact",
		Long: `Remove every entry of the file, SQLite or PostgreSQL cache.

Redis and MongoDB entries expire on their own and are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheClear(cmd.Context())
		},
	}
}

func (c *CLI) runCacheClear(ctx context.Context) error {
	var (
		count int64
		where string
		err   error
	)
	switch b := c.Config.Cache.Backend; b {
	case cache.BackendFile:
		count, where, err = c.clearFileCache()
	case cache.BackendSQLite, cache.BackendPostgres:
		count, where, err = c.clearSQLCache(ctx)
	default:
		printInfo("Cache backend is %s, nothing to clear", b)
		return nil
	}
	if err != nil {
		return err
	}
	if count == 0 {
		printInfo("Cache is empty")
		return nil
	}

	printSuccess("Cleared %d cached entries", count)
	printDetail("%s", where)
	return nil
}

func (c *CLI) clearFileCache() (int64, string, error) {
	dir, err := c.cachePath()
	if err != nil {
		return 0, "", err
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return 0, "", fmt.Errorf("open cache: %w", err)
	}
	n, err := fc.Clear()
	if err != nil {
		return 0, "", fmt.Errorf("clear cache: %w", err)
	}
	return int64(n), "Directory: " + dir, nil
}

func (c *CLI) clearSQLCache(ctx context.Context) (int64, string, error) {
	var (
		sc    *cache.SQLCache
		where string
		err   error
	)
	if c.Config.Cache.Backend == cache.BackendPostgres {
		sc, err = cache.NewPostgresCache(ctx, c.Config.Cache.PostgresDSN)
		where = "Table: " + cache.SQLTable
	} else {
		path := c.Config.Cache.SQLitePath
		if path == "" {
			dir, derr := c.cachePath()
			if derr != nil {
				return 0, "", derr
			}
			path = filepath.Join(dir, cache.SQLiteFile)
		}
		sc, err = cache.NewSQLiteCache(ctx, path)
		where = "Database: " + path
	}
	if err != nil {
		return 0, "", fmt.Errorf("open cache: %w", err)
	}
	defer sc.Close()

	n, err := sc.Clear(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("clear cache: %w", err)
	}
	return n, where, nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cachePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cachePath returns the configured cache directory or the XDG default.
func (c *CLI) cachePath() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return dir, nil
}
