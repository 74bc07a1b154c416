package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tahmid-khan/cvc-approximation/pkg/cache"
	"github.com/tahmid-khan/cvc-approximation/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result and index caches",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove cached results and downloaded index files",
		Long: `Clear empties the file result cache and the index cache. A Redis result
cache is left alone; its entries expire on their own.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Cache.Backend == config.CacheRedis {
				printWarning(c.Out, "Redis result cache not cleared")
			} else {
				dir, err := c.resultCacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				if err := clearFileCache(dir); err != nil {
					return err
				}
				printSuccess(c.Out, "Cleared result cache")
				printDetail(c.Out, "Directory: %s", dir)
			}

			dir, err := indexCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("clear %s: %w", dir, err)
			}
			printSuccess(c.Out, "Cleared index cache")
			printDetail(c.Out, "Directory: %s", dir)
			return nil
		},
	}
}

func clearFileCache(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	return fc.Clear()
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.resultCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			index, err := indexCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			printKeyValue(c.Out, "results", results)
			printKeyValue(c.Out, "index", index)
			return nil
		},
	}
}
