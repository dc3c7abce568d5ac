// jta: JSON Translation AI. Keeps localized JSON files in sync with a
// template language file and fills the gaps with an LLM provider.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/minios-linux/jta/config"
	"github.com/minios-linux/jta/diff"
	"github.com/minios-linux/jta/i18n"
	"github.com/minios-linux/jta/jsontree"
	"github.com/minios-linux/jta/keypath"
	"github.com/minios-linux/jta/langmeta"
	"github.com/minios-linux/jta/locales"
	"github.com/minios-linux/jta/syncer"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	blue   = color.New(color.FgBlue)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, blue.Sprint("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, green.Sprint("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, yellow.Sprint("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, red.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configFile string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jta",
		Short: "JSON Translation AI: sync localized JSON files with a template",
		Long: `jta keeps localized JSON files in line with a template language file.

Keys missing from a target file, and keys the template lists under its
"__updated_keys__" marker, are translated with an AI provider. Translations
are cached, failures fall back to the template text and are reported.

Supports a single-file layout (locales/en.json, locales/de.json) and a
multi-file layout (locales/en/*.json, locales/de/*.json) with auto-detection.

Commands:
  status      Show project layout and per-language coverage
  check       List missing and extra keys per file
  translate   Translate missing and updated keys
  prune       Remove keys the template does not have
  clear       Reset target files to an empty object
  cache       Inspect or clear the translation cache
  get, set    Read or write one value by key path
  auth        Manage provider credentials

AI Providers:
  openai         OpenAI, API key
  anthropic      Anthropic, API key
  google         Google AI (Gemini), API key
  groq           Groq, API key
  openrouter     OpenRouter, API key
  ollama         Ollama local server
  custom-openai  Custom OpenAI-compatible endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: <root>/"+config.FileName+")")

	root.AddCommand(
		newStatusCmd(),
		newCheckCmd(),
		newTranslateCmd(),
		newPruneCmd(),
		newClearCmd(),
		newCacheCmd(),
		newGetCmd(),
		newSetCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "jta version %s\n", version)
			fmt.Fprintf(w, "  commit:    %s\n", commit)
			fmt.Fprintf(w, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Project selection flags
// ---------------------------------------------------------------------------

// projectFlags select the locales directory and the languages to work on.
// They are shared by every command that touches locale files.
type projectFlags struct {
	folder    string
	template  string
	languages string
	langs     []string
	dialect   keypath.Dialect
}

func (p *projectFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&p.folder, "folder", "f", "", "Locales folder (default: locales)")
	fs.StringVarP(&p.template, "template", "t", "", "Template language code (default: en)")
	fs.StringVarP(&p.languages, "languages", "l", "", "Language list file (one code per line)")
	fs.StringSliceVar(&p.langs, "lang", nil, "Target languages (comma-separated, default: all discovered)")
	fs.Var(&p.dialect, "dialect", "Key path notation: dotted or bracketed")
}

// apply overlays the flags the user actually set on s.
func (p *projectFlags) apply(fs *pflag.FlagSet, s *config.Settings) {
	if fs.Changed("folder") {
		s.LocalesDir = p.folder
	}
	if fs.Changed("template") {
		s.TemplateLang = p.template
	}
	if fs.Changed("languages") {
		s.LanguagesFile = p.languages
	}
	if fs.Changed("lang") {
		s.Languages = locales.SplitLanguages(strings.Join(p.langs, ","))
	}
	if fs.Changed("dialect") {
		s.Dialect = p.dialect
	}
}

// loadSettings resolves defaults, preset, .jta.yaml, environment and the
// project flags, in that order.
func loadSettings(fs *pflag.FlagSet, p *projectFlags, preset string) (*config.Settings, error) {
	env, err := config.LoadEnv(rootDir)
	if err != nil {
		return nil, err
	}
	s, err := config.Load(rootDir, configFile, preset, env)
	if err != nil {
		return nil, err
	}
	if p != nil {
		p.apply(fs, s)
	}
	return s, nil
}

// openProject discovers the locales directory and the target languages.
func openProject(s *config.Settings) (*locales.Locales, []string, error) {
	loc, err := locales.Discover(s.Abs(s.LocalesDir), s.TemplateLang)
	if err != nil {
		return nil, nil, err
	}
	langs, err := loc.Languages(s.Languages, s.Abs(s.LanguagesFile))
	if err != nil {
		return nil, nil, err
	}
	if verr := loc.Validate(langs); verr != nil {
		for _, e := range multierr.Errors(verr) {
			logWarning("%v", e)
		}
	}
	return loc, langs, nil
}

// inspector returns a syncer that is only used for read-only comparisons.
func inspector(s *config.Settings) *syncer.Syncer {
	return syncer.New(nil, syncer.Options{
		Root:    s.Root,
		Dialect: s.Dialect,
		Marker:  s.Marker,
	})
}

// ---------------------------------------------------------------------------
// status (read-only: project info + coverage)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var pf projectFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project layout and per-language coverage",
		Long: `Show the auto-detected locales layout, the template, the target
languages and how many template keys each language has. Also reports the
translation cache and the lock file. Does not modify any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd.Flags(), &pf, "")
			if err != nil {
				return err
			}
			return runStatus(cmd.OutOrStdout(), s)
		},
	}
	pf.register(cmd.Flags())
	return cmd
}

func runStatus(w io.Writer, s *config.Settings) error {
	loc, langs, err := openProject(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\n", blue.Sprint(i18n.T("Project")))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Root:"), s.Root)
	if s.ConfigPath != "" {
		fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Config:"), s.ConfigPath)
	} else {
		fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Config:"), i18n.T("(none)"))
	}
	fmt.Fprintf(w, "  %-12s %s (%s)\n", i18n.T("Locales:"), loc.Dir, loc.Layout)
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Template:"), langmeta.Label(loc.Template))
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Files:"), fmt.Sprintf(i18n.N("%d file", "%d files", len(loc.Files)), len(loc.Files)))
	fmt.Fprintf(w, "  %-12s %s\n", i18n.T("Languages:"), fmt.Sprintf(i18n.N("%d language", "%d languages", len(langs)), len(langs)))

	if len(langs) > 0 {
		statuses := inspector(s).Inspect(loc.Pairs(langs))
		fmt.Fprintf(w, "\n%s\n", blue.Sprint(i18n.T("Coverage")))
		fmt.Fprintln(w, strings.Repeat("─", 60))
		printCoverage(w, syncer.LanguageCoverage(statuses))
		for _, st := range statuses {
			if st.Err != nil {
				logWarning("%s: %v", st.Target, st.Err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", blue.Sprint(i18n.T("Cache")))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	printCacheStats(w, s.Abs(s.CacheFile))

	fmt.Fprintf(w, "\n%s\n", blue.Sprint(i18n.T("Lock")))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	printLockSummary(w, s.Root)
	fmt.Fprintln(w)
	return nil
}

// printCoverage writes one line per language: label, bar and counts.
func printCoverage(w io.Writer, covs []syncer.Coverage) {
	labels := make([]string, len(covs))
	for i, c := range covs {
		labels[i] = langmeta.Label(c.Lang)
	}
	width := columnWidth(labels)
	for i, c := range covs {
		detail := fmt.Sprintf("%d/%d", c.Present, c.Total)
		if c.Missing > 0 {
			detail += ", " + fmt.Sprintf(i18n.N("%d missing", "%d missing", c.Missing), c.Missing)
		}
		if c.Extra > 0 {
			detail += ", " + fmt.Sprintf(i18n.N("%d extra", "%d extra", c.Extra), c.Extra)
		}
		if c.Errors > 0 {
			detail += ", " + red.Sprintf(i18n.N("%d unreadable file", "%d unreadable files", c.Errors), c.Errors)
		}
		fmt.Fprintf(w, "  %s  %s  %s\n", padRight(labels[i], width), progressBar(int(c.Percent()), 20), detail)
	}
}

// progressBar renders a coloured completion bar followed by the percentage.
func progressBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := red
	switch {
	case percent >= 100:
		c = green
	case percent >= 50:
		c = yellow
	}
	return c.Sprint(bar) + fmt.Sprintf(" %3d%%", percent)
}

// columnWidth is the display width of the widest cell.
func columnWidth(cells []string) int {
	w := 0
	for _, c := range cells {
		w = max(w, runewidth.StringWidth(c))
	}
	return w
}

// padRight pads s with spaces to the display width w. Flags and CJK names
// take two columns per rune.
func padRight(s string, w int) string {
	if n := runewidth.StringWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// filterLanguages keeps the languages of langs listed in only, in the order
// of langs. An empty only keeps everything.
func filterLanguages(langs, only []string) []string {
	if len(only) == 0 {
		return langs
	}
	want := make(map[string]bool, len(only))
	for _, l := range only {
		want[langmeta.Canonical(l)] = true
	}
	var out []string
	for _, l := range langs {
		if want[langmeta.Canonical(l)] {
			out = append(out, l)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// check (read-only: missing / extra keys)
// ---------------------------------------------------------------------------

func newCheckCmd() *cobra.Command {
	var (
		pf     projectFlags
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "List missing and extra keys per target file",
		Long: `Compare every target file with its template and list the key paths
the target lacks and the key paths the template does not have. Also checks
that the updated-keys marker of each template names existing keys.

With --strict the command fails when any key is missing, which makes it
usable as a CI gate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd.Flags(), &pf, "")
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), s, strict)
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when keys are missing")
	return cmd
}

func runCheck(w io.Writer, s *config.Settings, strict bool) error {
	loc, langs, err := openProject(s)
	if err != nil {
		return err
	}

	for _, rel := range loc.Files {
		tmpl, err := jsontree.LoadFile(loc.TemplatePath(rel), jsontree.RoleTemplate)
		if err != nil {
			return err
		}
		for _, e := range diff.ValidateUpdatedKeys(tmpl, s.Marker) {
			logWarning("%s: %v", rel, e)
		}
	}

	if len(langs) == 0 {
		logWarning("%s", i18n.T("No target languages found"))
		return nil
	}

	missing, broken := 0, 0
	for _, st := range inspector(s).Inspect(loc.Pairs(langs)) {
		if st.Err != nil {
			logError("%s: %v", st.Target, st.Err)
			broken++
			continue
		}
		missing += len(st.Missing)
		if len(st.Missing) == 0 && len(st.Extra) == 0 {
			fmt.Fprintf(w, "%s %s\n", green.Sprint("✓"), st.Target)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", yellow.Sprint("✗"), bold.Sprint(st.Target))
		for _, p := range keypath.FormatAll(st.Missing, s.Dialect) {
			fmt.Fprintf(w, "    %s %s\n", red.Sprint("-"), p)
		}
		for _, p := range keypath.FormatAll(st.Extra, s.Dialect) {
			fmt.Fprintf(w, "    %s %s\n", blue.Sprint("+"), p)
		}
	}

	if broken > 0 {
		return fmt.Errorf(i18n.N("%d target file could not be read", "%d target files could not be read", broken), broken)
	}
	if strict && missing > 0 {
		return fmt.Errorf(i18n.N("%d key missing", "%d keys missing", missing), missing)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// relTo returns path relative to root when it lies inside it.
func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// errInterrupted is returned when a run was stopped by a signal.
var errInterrupted = errors.New("interrupted")
