package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/fluxi/internal/engine/cache"
)

// ErrCacheMiss is returned by "cache get" when no valid entry exists.
var ErrCacheMiss = errors.New("no valid cache entry")

// newCacheCmd creates the cache command group.
func newCacheCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached reads",
		Long: `Inspect and manage the TTL cache that serves dashboard, goal and profile reads.

Keys are logical names such as financial_summary; the configured prefix is
added when they are stored. Entries expire after their TTL and are purged
when next read.`,
	}
	cmd.AddCommand(
		newCacheGetCmd(app),
		newCacheSetCmd(app),
		newCacheClearCmd(app),
		newCacheClearAllCmd(app),
		newCacheInvalidateCmd(app),
		newCacheGroupsCmd(),
		newCacheStatCmd(app),
		newCacheInfoCmd(app),
	)
	return cmd
}

func newCacheGetCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the cached JSON payload for a key",
		Example: `  fluxi cache get financial_summary
  fluxi cache get goals_active --cache-backend redis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.requireCache()
			if err != nil {
				return err
			}
			raw, ok := c.Get(commandContext(cmd), args[0])
			if !ok {
				return fmt.Errorf("%w for key %q", ErrCacheMiss, args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}

func newCacheSetCmd(app *appState) *cobra.Command {
	var ttl string

	cmd := &cobra.Command{
		Use:   "set <key> <json>",
		Short: "Store a JSON payload under a key",
		Example: `  fluxi cache set greeting '"hello"'
  fluxi cache set limits '{"daily":50}' --ttl 10m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.requireCache()
			if err != nil {
				return err
			}
			payload := strings.TrimSpace(args[1])
			if !json.Valid([]byte(payload)) {
				return fmt.Errorf("payload for %q is not valid JSON", args[0])
			}

			var d time.Duration
			if ttl != "" {
				if d, err = cache.ParseTTL(ttl); err != nil {
					return err
				}
			}

			c.SetWithTTL(commandContext(cmd), args[0], json.RawMessage(payload), d)
			if d == 0 {
				d = c.DefaultTTL()
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s (ttl %s)\n", args[0], cache.FormatDuration(d))
			return err
		},
	}
	cmd.Flags().StringVar(&ttl, "ttl", "", "entry TTL, milliseconds or duration (default: cache default)")
	return cmd
}

func newCacheClearCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <key>...",
		Short: "Remove cached entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.requireCache()
			if err != nil {
				return err
			}
			for _, key := range args {
				c.Clear(commandContext(cmd), key)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d key(s)\n", len(args))
			return err
		},
	}
}

func newCacheClearAllCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-all",
		Short: "Remove every entry under the cache prefix",
		Long:  "Removes every cached entry under the configured prefix. Keys outside the prefix are left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.requireCache()
			if err != nil {
				return err
			}
			c.ClearAll(commandContext(cmd))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared all entries under %q\n", c.Prefix())
			return err
		},
	}
}

func newCacheInvalidateCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <group>",
		Short: "Evict every read affected by a kind of mutation",
		Example: `  fluxi cache invalidate transaction
  fluxi cache invalidate goal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.requireCache()
			if err != nil {
				return err
			}
			g, ok := cache.ParseGroup(args[0])
			if !ok {
				return fmt.Errorf("unknown group %q (known: %s)", args[0], joinGroups(cache.Groups()))
			}
			c.InvalidateGroup(commandContext(cmd), g)
			keys, _ := cache.GroupKeys(g)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s: %s\n", g, strings.Join(keys, ", "))
			return err
		},
	}
}

func newCacheGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List invalidation groups and their keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, g := range cache.Groups() {
				keys, _ := cache.GroupKeys(g)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", g, strings.Join(keys, ", ")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCacheStatCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:     "stat <key>",
		Short:   "Show the age and remaining lifetime of a cached entry",
		Example: `  fluxi cache stat financial_summary`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.requireCache()
			if err != nil {
				return err
			}
			info, ok := c.Stat(commandContext(cmd), args[0])
			if !ok {
				return fmt.Errorf("%w for key %q", ErrCacheMiss, args[0])
			}
			w := cmd.OutOrStdout()
			_, err = fmt.Fprintf(w, "Key:       %s\nStored:    %s\nTTL:       %s\nAge:       %s\nRemaining: %s\nSize:      %d bytes\n",
				info.Key,
				info.StoredAt.Format(time.RFC3339),
				cache.FormatDuration(info.TTL),
				cache.FormatDuration(info.Age),
				cache.FormatDuration(info.Remaining),
				info.Size)
			return err
		},
	}
}

func newCacheInfoCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the cache backend, prefix, default TTL and stored entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.requireCache()
			if err != nil {
				return err
			}
			keys, err := c.Storage().Keys(commandContext(cmd), c.Prefix())
			if err != nil {
				return fmt.Errorf("listing cache keys: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Backend:     %s\n", app.cfg.Cache.Backend)
			fmt.Fprintf(&b, "Prefix:      %s\n", c.Prefix())
			fmt.Fprintf(&b, "Default TTL: %s\n", cache.FormatDuration(c.DefaultTTL()))
			fmt.Fprintf(&b, "Entries:     %d\n", len(keys))
			if fs, ok := c.Storage().(*cache.FileStorage); ok {
				size, sizeErr := fs.Size()
				if sizeErr != nil {
					return sizeErr
				}
				fmt.Fprintf(&b, "Directory:   %s\n", fs.Directory())
				fmt.Fprintf(&b, "Disk usage:  %d bytes\n", size)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), b.String())
			return err
		},
	}
}

func joinGroups(groups []cache.Group) string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, string(g))
	}
	return strings.Join(names, ", ")
}
