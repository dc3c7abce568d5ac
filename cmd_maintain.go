package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/minios-linux/jta/cache"
	"github.com/minios-linux/jta/i18n"
	"github.com/minios-linux/jta/jsontree"
	"github.com/minios-linux/jta/keypath"
	"github.com/minios-linux/jta/langmeta"
	"github.com/minios-linux/jta/lockfile"
	"github.com/minios-linux/jta/syncer"
)

// ---------------------------------------------------------------------------
// prune
// ---------------------------------------------------------------------------

func newPruneCmd() *cobra.Command {
	var (
		pf     projectFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove keys the template does not have",
		Long: `Delete every key path of a target file that the template does not
have. Containers left empty are removed too. With --dry-run the change is
printed as a unified diff and nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd.Flags(), &pf, "")
			if err != nil {
				return err
			}
			loc, langs, err := openProject(s)
			if err != nil {
				return err
			}
			sy := syncer.New(nil, syncer.Options{
				Root:    s.Root,
				Dialect: s.Dialect,
				Marker:  s.Marker,
				DryRun:  dryRun,
			})

			pruned, failed := 0, 0
			for _, res := range sy.Prune(loc.Pairs(langs)) {
				if res.Err != nil {
					logError("%s: %v", res.Target, res.Err)
					failed++
					continue
				}
				if res.Pruned == 0 {
					continue
				}
				pruned += res.Pruned
				if dryRun {
					fmt.Fprint(cmd.OutOrStdout(), res.Diff)
				} else {
					logInfo(i18n.N("%s: removed %d key", "%s: removed %d keys", res.Pruned), res.Target, res.Pruned)
				}
			}

			switch {
			case pruned == 0:
				logSuccess("%s", i18n.T("No extra keys found"))
			case dryRun:
				logInfo(i18n.N("Dry run: %d key would be removed", "Dry run: %d keys would be removed", pruned), pruned)
			default:
				logSuccess(i18n.N("Removed %d key", "Removed %d keys", pruned), pruned)
			}
			if failed > 0 {
				return fmt.Errorf(i18n.N("%d file could not be pruned", "%d files could not be pruned", failed), failed)
			}
			return nil
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print a diff instead of writing files")
	return cmd
}

// ---------------------------------------------------------------------------
// clear
// ---------------------------------------------------------------------------

func newClearCmd() *cobra.Command {
	var (
		pf  projectFlags
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset target files to an empty object",
		Long: `Overwrite every existing target file with {} so the next translate
run starts from scratch. The template is never touched. Lock entries of the
cleared files are removed.

Requires --yes. Combine with --lang to clear only some languages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("%s", i18n.T("refusing to clear target files without --yes"))
			}
			s, err := loadSettings(cmd.Flags(), &pf, "")
			if err != nil {
				return err
			}
			loc, langs, err := openProject(s)
			if err != nil {
				return err
			}

			var lock *lockfile.Lock
			if fileExists(filepath.Join(s.Root, lockfile.FileName)) {
				if lock, err = lockfile.Load(s.Root); err != nil {
					return err
				}
			}
			sy := syncer.New(nil, syncer.Options{Root: s.Root, Marker: s.Marker, Lock: lock})

			cleared, failed := 0, 0
			for _, res := range sy.Clear(loc.Pairs(langs)) {
				if res.Err != nil {
					logError("%s: %v", res.Target, res.Err)
					failed++
					continue
				}
				cleared++
				logInfo(i18n.T("%s: cleared"), res.Target)
			}
			if lock != nil {
				if err := lock.Save(); err != nil {
					return err
				}
			}
			logSuccess(i18n.N("Cleared %d file", "Cleared %d files", cleared), cleared)
			if failed > 0 {
				return fmt.Errorf(i18n.N("%d file could not be cleared", "%d files could not be cleared", failed), failed)
			}
			return nil
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm that target files should be emptied")
	return cmd
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	var cacheFile string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the translation cache",
		Long: `The translation cache maps (source text, language) to a translation.
It is shared by all files of a project and consulted before any request is
sent to a provider.`,
	}
	cmd.PersistentFlags().StringVarP(&cacheFile, "cache", "c", "", "Translation cache file (default: "+cache.DefaultFileName+")")

	cachePath := func(cmd *cobra.Command) (string, error) {
		s, err := loadSettings(cmd.Flags(), nil, "")
		if err != nil {
			return "", err
		}
		if cmd.Flags().Changed("cache") {
			s.CacheFile = cacheFile
		}
		return s.Abs(s.CacheFile), nil
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size, token usage and languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cachePath(cmd)
			if err != nil {
				return err
			}
			printCacheStats(cmd.OutOrStdout(), path)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cachePath(cmd)
			if err != nil {
				return err
			}
			c, err := cache.Load(path)
			if err != nil {
				return err
			}
			n := c.Len()
			c.Clear()
			if err := c.Save(); err != nil {
				return err
			}
			logSuccess(i18n.N("Removed %d cached translation", "Removed %d cached translations", n), n)
			return nil
		},
	}

	var lang string
	lookup := &cobra.Command{
		Use:   "lookup TEXT",
		Short: "Print the cached translation of TEXT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lang == "" {
				return fmt.Errorf("%s", i18n.T("--lang is required"))
			}
			path, err := cachePath(cmd)
			if err != nil {
				return err
			}
			c, err := cache.Load(path)
			if err != nil {
				return err
			}
			tr, ok := c.Lookup(args[0], lang)
			if !ok {
				return fmt.Errorf(i18n.T("no cached %s translation"), lang)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tr)
			return nil
		},
	}
	lookup.Flags().StringVar(&lang, "lang", "", "Target language code")

	cmd.AddCommand(stats, clearCmd, lookup)
	return cmd
}

func printCacheStats(w io.Writer, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "  %s\n", i18n.T("No cache file"))
		return
	}
	c, err := cache.Load(path)
	if err != nil {
		fmt.Fprintf(w, "  %s\n", red.Sprint(err))
		return
	}
	st := c.Stats()
	fmt.Fprintf(w, "  %-12s %s (%s)\n", i18n.T("File:"), path, humanize.Bytes(uint64(info.Size())))
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Entries:"), humanize.Comma(int64(st.Entries)))
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Requests:"), humanize.Comma(st.TotalRequests))
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Tokens:"), humanize.Comma(st.TotalTokensUsed))
	if !st.LastUpdated.IsZero() {
		fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Updated:"), humanize.Time(st.LastUpdated))
	}
	if langs := c.Languages(); len(langs) > 0 {
		labels := make([]string, len(langs))
		for i, l := range langs {
			labels[i] = langmeta.Label(l)
		}
		fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Languages:"), strings.Join(labels, ", "))
	}
}

func printLockSummary(w io.Writer, root string) {
	if !fileExists(filepath.Join(root, lockfile.FileName)) {
		fmt.Fprintf(w, "  %s\n", i18n.T("No lock file (enable with --lock)"))
		return
	}
	lf, err := lockfile.Load(root)
	if err != nil {
		fmt.Fprintf(w, "  %s\n", red.Sprint(err))
		return
	}
	sum := lf.Summary()
	n := len(sum.Targets)
	fmt.Fprintf(w, "  %s, %s\n",
		fmt.Sprintf(i18n.N("%d target", "%d targets", n), n),
		fmt.Sprintf(i18n.N("%d key", "%d keys", sum.Keys), sum.Keys))
	for _, t := range sum.Targets {
		fmt.Fprintf(w, "    %-40s %s\n", t.Target, humanize.Comma(int64(t.Keys)))
	}
}

// ---------------------------------------------------------------------------
// get / set
// ---------------------------------------------------------------------------

func newGetCmd() *cobra.Command {
	var dialect keypath.Dialect

	cmd := &cobra.Command{
		Use:   "get FILE PATH",
		Short: "Print the JSON value at a key path",
		Long: `Print the value found at PATH in the JSON file FILE, encoded as JSON.

PATH uses the dotted notation (menu.items.0.label) unless --dialect
bracketed is given (menu.items[0].label). Exits with an error when the
path does not exist.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := keypath.Parse(args[1], dialect)
			if err != nil {
				return err
			}
			root, err := jsontree.LoadFile(args[0], jsontree.RoleTarget)
			if err != nil {
				return err
			}
			v, ok := jsontree.Get(root, p)
			if !ok {
				return fmt.Errorf(i18n.T("%s: path %q not found"), args[0], args[1])
			}
			data, err := jsontree.Marshal(v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", strings.TrimRight(string(data), "\n"))
			return nil
		},
	}
	cmd.Flags().Var(&dialect, "dialect", "Key path notation: dotted or bracketed")
	return cmd
}

func newSetCmd() *cobra.Command {
	var (
		dialect keypath.Dialect
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "set FILE PATH VALUE",
		Short: "Write a value at a key path",
		Long: `Store VALUE at PATH in the JSON file FILE, creating the file and any
missing intermediate objects or arrays. VALUE is stored as a string unless
--json is given, in which case it is parsed as a JSON document.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, path := args[0], args[1]
			v, err := parseSetValue(args[2], asJSON)
			if err != nil {
				return err
			}
			root, err := jsontree.LoadFile(file, jsontree.RoleTarget)
			if err != nil {
				if !jsontree.IsNotFound(err) {
					return err
				}
				root = jsontree.NewObject()
			}
			root, err = jsontree.SetPath(root, path, dialect, v)
			if err != nil {
				return err
			}
			return jsontree.WriteFile(file, root)
		},
	}
	cmd.Flags().Var(&dialect, "dialect", "Key path notation: dotted or bracketed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Parse VALUE as JSON")
	return cmd
}

// parseSetValue turns the VALUE argument of set into a tree value.
func parseSetValue(raw string, asJSON bool) (any, error) {
	if !asJSON {
		return raw, nil
	}
	v, err := jsontree.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON value: %w", err)
	}
	return v, nil
}
