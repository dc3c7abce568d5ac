package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/jta/cache"
	"github.com/minios-linux/jta/config"
	"github.com/minios-linux/jta/i18n"
	"github.com/minios-linux/jta/lockfile"
	"github.com/minios-linux/jta/progress"
	"github.com/minios-linux/jta/report"
	"github.com/minios-linux/jta/syncer"
	"github.com/minios-linux/jta/translate"
)

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	project projectFlags

	cacheFile string
	preset    string

	// Provider selection
	provider string
	model    string
	apiKey   string
	baseURL  string
	system   string

	// Batching and parallelization
	batchSize     int
	maxConcurrent int
	maxBatches    int

	// Network
	timeout    time.Duration
	maxRetries int
	proxy      string

	// Behavior
	dryRun        bool
	lock          bool
	prune         bool
	verbose       bool
	noProgress    bool
	checkProvider bool
	reportFile    string
}

func (a *translateArgs) register(fs *pflag.FlagSet) {
	a.project.register(fs)

	fs.StringVarP(&a.cacheFile, "cache", "c", "", "Translation cache file (default: "+cache.DefaultFileName+")")
	fs.StringVarP(&a.preset, "preset", "p", "", "Performance preset: CONSERVATIVE, BALANCED or FAST")

	fs.StringVar(&a.provider, "provider", "", "AI provider: openai, anthropic, google, groq, openrouter, ollama, custom-openai")
	fs.StringVarP(&a.model, "model", "m", "", "Model name (default: provider default)")
	fs.StringVarP(&a.apiKey, "api-key", "k", "", "API key (or JTA_API_KEY / PROVIDER_KEY env var)")
	fs.StringVarP(&a.baseURL, "base-url", "u", "", "Custom API base URL")
	fs.StringVarP(&a.system, "system", "s", "", "Custom system message for translation context")

	fs.IntVar(&a.batchSize, "batch-size", 0, "Strings per API request (1-20, default: from preset)")
	fs.IntVar(&a.maxConcurrent, "max-concurrent", 0, "Languages translated at once (default: from preset)")
	fs.IntVar(&a.maxBatches, "max-batches", 0, "Batches in flight per file (default: from preset)")

	fs.DurationVar(&a.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	fs.IntVar(&a.maxRetries, "max-retries", 3, "Maximum retries of a failed request")
	fs.StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL (or PROVIDER_PROXY_URL env var)")

	fs.BoolVar(&a.dryRun, "dry-run", false, "Show what would change without calling the provider or writing files")
	fs.BoolVar(&a.lock, "lock", false, "Retranslate template strings changed since the last run (uses "+lockfile.FileName+")")
	fs.BoolVar(&a.prune, "prune", false, "Remove keys the template does not have")
	fs.BoolVar(&a.verbose, "verbose", false, "Enable detailed logging")
	fs.BoolVar(&a.noProgress, "no-progress", false, "Disable the progress bar")
	fs.BoolVar(&a.checkProvider, "check-provider", false, "Send a test request before translating")
	fs.StringVar(&a.reportFile, "report", "", "Failure report file (default: "+report.DefaultFileName+")")
}

// apply overlays the flags the user actually set on s.
func (a *translateArgs) apply(fs *pflag.FlagSet, s *config.Settings) {
	a.project.apply(fs, s)

	if fs.Changed("cache") {
		s.CacheFile = a.cacheFile
	}
	if fs.Changed("provider") {
		s.Provider = a.provider
	}
	if fs.Changed("model") {
		s.Model = a.model
	}
	if fs.Changed("base-url") {
		s.BaseURL = a.baseURL
	}
	if fs.Changed("system") {
		s.SystemMessage = a.system
	}
	if fs.Changed("batch-size") {
		s.BatchSize = a.batchSize
	}
	if fs.Changed("max-concurrent") {
		s.MaxConcurrentLanguages = a.maxConcurrent
	}
	if fs.Changed("max-batches") {
		s.MaxConcurrentBatches = a.maxBatches
	}
	if fs.Changed("timeout") {
		s.Timeout = a.timeout
	}
	if fs.Changed("max-retries") {
		s.MaxRetries = a.maxRetries
	}
	if fs.Changed("proxy") {
		s.Proxy = a.proxy
	}
	if fs.Changed("lock") {
		s.Lock = a.lock
	}
	if fs.Changed("prune") {
		s.Prune = a.prune
	}
	if fs.Changed("report") {
		s.ReportFile = a.reportFile
	}
}

func newTranslateCmd() *cobra.Command {
	a := &translateArgs{}

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate missing and updated keys with AI",
		Long: `Bring every target file in line with the template.

Keys missing from a target, and keys named by the template's
"__updated_keys__" marker, are translated. Cached translations are applied
first; the rest is sent to the provider in batches. A batch that fails is
retried key by key, and a key that still fails keeps the template text and
is listed in the failure report.

Examples:
  # Translate all discovered languages with OpenAI
  jta translate

  # Use Anthropic for German and French only
  jta translate --provider anthropic --lang de,fr

  # Local Ollama server, careful pacing
  jta translate --provider ollama --model llama3.2 --preset CONSERVATIVE

  # Show the changes without calling the provider
  jta translate --dry-run

  # Also retranslate template strings edited since the last run
  jta translate --lock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, a)
		},
	}

	a.register(cmd.Flags())

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, id := range translate.ProviderIDs() {
			p, _ := translate.LookupProvider(id)
			out = append(out, id+"\t"+p.Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("preset", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.PresetNames(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		p, _ := cmd.Flags().GetString("provider")
		switch p {
		case translate.ProviderOpenAI, "":
			return []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderAnthropic:
			return []string{"claude-3-5-haiku-latest", "claude-sonnet-4-0"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderGoogle:
			return []string{"gemini-2.5-flash", "gemini-2.5-pro"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderGroq:
			return []string{"llama-3.3-70b-versatile"}, cobra.ShellCompDirectiveNoFileComp
		case translate.ProviderOllama:
			return []string{"llama3.2", "qwen2.5", "mistral"}, cobra.ShellCompDirectiveNoFileComp
		default:
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	})

	return cmd
}

func runTranslate(cmd *cobra.Command, a *translateArgs) error {
	s, err := loadSettings(cmd.Flags(), nil, a.preset)
	if err != nil {
		return err
	}
	a.apply(cmd.Flags(), s)
	if err := s.Validate(); err != nil {
		return err
	}

	loc, langs, err := openProject(s)
	if err != nil {
		return err
	}
	if len(langs) == 0 {
		return fmt.Errorf("%s", i18n.T("no target languages found; add files to the locales folder or pass --lang"))
	}
	pairs := loc.Pairs(langs)

	logInfo(i18n.T("Template: %s (%s layout, %d files)"), loc.Template, loc.Layout, len(loc.Files))
	logInfo(i18n.T("Languages: %d"), len(langs))

	// Cancel on interrupt; finished work is still written.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, saving progress..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	c, err := cache.Load(s.Abs(s.CacheFile))
	if err != nil {
		return err
	}
	c.SetSaveInterval(s.SaveInterval)
	if n := c.Len(); n > 0 {
		logInfo(i18n.T("Cache: %d entries"), n)
	}

	var tr translate.Translator
	if !a.dryRun {
		llm, pool, err := newTranslator(ctx, s, a, c)
		if err != nil {
			return err
		}
		defer pool.Close()
		tr = llm
	}

	var lock *lockfile.Lock
	if s.Lock {
		if lock, err = lockfile.Load(s.Root); err != nil {
			return err
		}
	}

	failures := report.NewFailures()

	// The total is the number of missing keys; updated keys grow it as they
	// are discovered.
	total := 0
	for _, st := range inspector(s).Inspect(pairs) {
		total += len(st.Missing)
	}
	barEnabled := progress.Enabled(a.noProgress) && !a.verbose
	bar := progress.New(os.Stderr, total, i18n.T("Translating"), barEnabled)
	var (
		progMu sync.Mutex
		done   int
	)

	sy := syncer.New(tr, syncer.Options{
		Root:                   s.Root,
		Dialect:                s.Dialect,
		Marker:                 s.Marker,
		BatchSize:              s.BatchSize,
		MaxConcurrentLanguages: s.MaxConcurrentLanguages,
		MaxConcurrentBatches:   s.MaxConcurrentBatches,
		BatchDelayMin:          s.BatchDelayMin,
		BatchDelayMax:          s.BatchDelayMax,
		Cache:                  c,
		Lock:                   lock,
		Failures:               failures,
		DryRun:                 a.dryRun,
		Prune:                  s.Prune,
		Verbose:                a.verbose,
		OnLog: func(format string, args ...any) {
			if !barEnabled {
				logInfo(format, args...)
			}
		},
		OnError: logWarning,
		OnProgress: func(n int) {
			progMu.Lock()
			defer progMu.Unlock()
			done += n
			if done > total {
				bar.AddTotal(done - total)
				total = done
			}
			bar.Add(n)
		},
	})

	start := time.Now()
	sum, runErr := sy.Run(ctx, pairs)
	bar.Finish()

	if sum != nil {
		printFileResults(os.Stderr, sum.Files, a.verbose)
		if a.dryRun {
			for _, f := range sum.Files {
				if f.Diff != "" {
					fmt.Fprint(cmd.OutOrStdout(), f.Diff)
				}
			}
		}
		printTotals(sum.Totals(), time.Since(start), a.dryRun)
	}

	if failures.Count() > 0 {
		path := s.Abs(s.ReportFile)
		if _, err := failures.Write(path); err != nil {
			logError(i18n.T("Writing failure report: %v"), err)
		} else {
			logWarning(i18n.T("%d translations failed, see %s"), failures.Count(), relTo(s.Root, path))
		}
	}

	if !a.dryRun && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr)
		printCoverage(os.Stderr, syncer.LanguageCoverage(inspector(s).Inspect(loc.Pairs(langs))))
	}

	if errors.Is(runErr, context.Canceled) {
		return errInterrupted
	}
	return runErr
}

// newTranslator builds the provider-backed translator. The pool must be
// closed by the caller.
func newTranslator(ctx context.Context, s *config.Settings, a *translateArgs, c *cache.Cache) (*translate.LLM, *translate.ClientPool, error) {
	s.ResolveCredentials(a.apiKey)
	prov, err := s.ProviderConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := prov.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w (run 'jta auth login --provider %s' or set JTA_API_KEY)", err, prov.ID)
	}

	opts := translate.Options{
		Provider:          prov,
		SystemMessage:     s.SystemMessage,
		Timeout:           s.Timeout,
		MaxRetries:        s.MaxRetries,
		RequestsPerSecond: s.RequestsPerSecond,
		OnUsage:           c.RecordUsage,
		OnLog:             logInfo,
		OnError:           logWarning,
		Verbose:           a.verbose,
	}
	pool := translate.NewClientPool(opts.ClientOptions())
	llm, err := translate.NewLLM(pool.Get(prov), opts)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	logInfo(i18n.T("Provider: %s, model: %s"), prov.Name, prov.Model)

	if a.checkProvider {
		logInfo("%s", i18n.T("Checking provider..."))
		if err := llm.HealthCheck(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logSuccess("%s", i18n.T("Provider is reachable"))
	}
	return llm, pool, nil
}

// printFileResults writes one line per file that changed or failed. In
// verbose mode untouched files are listed too.
func printFileResults(w io.Writer, files []syncer.FileResult, verbose bool) {
	for _, f := range files {
		switch {
		case f.Err != nil:
			fmt.Fprintf(w, "  %s %s: %v\n", red.Sprint("✗"), f.Target, f.Err)
		case f.Changed() || f.Skipped > 0:
			fmt.Fprintf(w, "  %s %s: %s\n", fileMark(f), f.Target, describeResult(f))
		case verbose:
			fmt.Fprintf(w, "  %s %s: %s\n", green.Sprint("✓"), f.Target, i18n.T("up to date"))
		}
	}
}

func fileMark(f syncer.FileResult) string {
	if f.Failed > 0 || f.Skipped > 0 {
		return yellow.Sprint("!")
	}
	return green.Sprint("✓")
}

// describeResult summarizes the counters of one file, omitting zeros.
func describeResult(f syncer.FileResult) string {
	var parts []string
	add := func(n int, singular, plural string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf(i18n.N(singular, plural, n), n))
		}
	}
	if f.Created {
		parts = append(parts, i18n.T("created"))
	}
	add(f.Translated, "%d translated", "%d translated")
	add(f.Cached, "%d cached", "%d cached")
	add(f.Copied, "%d copied", "%d copied")
	add(f.Failed, "%d failed", "%d failed")
	add(f.Skipped, "%d skipped", "%d skipped")
	add(f.Pruned, "%d pruned", "%d pruned")
	if f.Extra > f.Pruned {
		add(f.Extra-f.Pruned, "%d extra", "%d extra")
	}
	if len(parts) == 0 {
		return i18n.T("markers removed")
	}
	return strings.Join(parts, ", ")
}

func printTotals(t syncer.FileResult, elapsed time.Duration, dryRun bool) {
	if dryRun {
		logInfo(i18n.T("Dry run: %d keys would be translated, %d taken from cache"), t.Translated, t.Cached)
		return
	}
	msg := fmt.Sprintf(i18n.T("Done in %s: %d translated, %d cached, %d failed"),
		elapsed.Round(time.Second), t.Translated, t.Cached, t.Failed)
	if t.Failed > 0 || t.Skipped > 0 {
		logWarning("%s", msg)
		return
	}
	logSuccess("%s", msg)
}
