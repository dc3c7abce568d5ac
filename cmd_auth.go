package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/minios-linux/jta/settings"
	"github.com/minios-linux/jta/translate"
)

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credentials",
		Long: `Manage API keys and endpoints stored for AI providers.

Credentials are kept in $XDG_DATA_HOME/jta/auth.json (mode 0600). A key
given with --api-key, JTA_API_KEY or PROVIDER_KEY always wins over the
stored one.

API key providers:
  openai         OpenAI
  anthropic      Anthropic
  google         Google AI Studio (Gemini API key)
  groq           Groq Cloud
  openrouter     OpenRouter
  custom-openai  Custom OpenAI-compatible endpoint (URL and optional key)

No auth required:
  ollama         Local Ollama server (endpoint can be stored)

Examples:
  jta auth login                          Interactive provider selection
  jta auth login --provider anthropic     Store an Anthropic API key
  jta auth logout --provider groq         Remove the Groq key
  jta auth logout                         Remove all credentials
  jta auth list                           Show all stored credentials`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// providerHelp is shown while asking for a key.
var providerHelp = map[string]string{
	translate.ProviderOpenAI:     "https://platform.openai.com/api-keys",
	translate.ProviderAnthropic:  "https://console.anthropic.com/settings/keys",
	translate.ProviderGoogle:     "https://aistudio.google.com/apikey",
	translate.ProviderGroq:       "https://console.groq.com/keys",
	translate.ProviderOpenRouter: "https://openrouter.ai/keys",
}

func completeProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, id := range translate.ProviderIDs() {
		p, _ := translate.LookupProvider(id)
		out = append(out, id+"\t"+p.Name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func newAuthLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for a provider",
		Long: `Store an API key, and for custom endpoints a base URL, for a provider.
Without --provider an interactive menu is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewScanner(cmd.InOrStdin())
			w := cmd.ErrOrStderr()

			if provider == "" {
				id, err := selectProvider(w, in)
				if err != nil {
					return err
				}
				provider = id
			}
			prov, ok := translate.LookupProvider(provider)
			if !ok {
				return fmt.Errorf("unknown provider %q (valid: %s)", provider, strings.Join(translate.ProviderIDs(), ", "))
			}
			return authLogin(w, in, prov)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to configure")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeProviders)
	return cmd
}

func selectProvider(w io.Writer, in *bufio.Scanner) (string, error) {
	ids := translate.ProviderIDs()
	fmt.Fprintf(w, "\n%s\n", blue.Sprint("Select a provider"))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	for i, id := range ids {
		p, _ := translate.LookupProvider(id)
		fmt.Fprintf(w, "  %d) %-14s %s\n", i+1, id, p.Name)
	}
	fmt.Fprintf(w, "\n  Choice [1-%d]: ", len(ids))

	if !in.Scan() {
		return "", fmt.Errorf("no input received")
	}
	choice := strings.TrimSpace(in.Text())
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(ids) {
		return ids[n-1], nil
	}
	if _, ok := translate.LookupProvider(choice); ok {
		return strings.ToLower(choice), nil
	}
	return "", fmt.Errorf("invalid choice %q", choice)
}

func prompt(w io.Writer, in *bufio.Scanner, label string) (string, error) {
	fmt.Fprintf(w, "  %s: ", label)
	if !in.Scan() {
		if err := in.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input received")
	}
	return strings.TrimSpace(in.Text()), nil
}

func authLogin(w io.Writer, in *bufio.Scanner, prov translate.Provider) error {
	fmt.Fprintf(w, "\n%s\n", blue.Sprintf("%s: credential setup", prov.Name))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	if url := providerHelp[prov.ID]; url != "" {
		fmt.Fprintf(w, "  Get your API key from: %s\n\n", green.Sprint(url))
	}

	existing := settings.Get(prov.ID)

	baseURL := ""
	if !prov.NeedsKey {
		def := prov.BaseURL
		if existing != nil && existing.BaseURL != "" {
			def = existing.BaseURL
		}
		label := "Base URL"
		if def != "" {
			label += " [" + def + "]"
		}
		v, err := prompt(w, in, label)
		if err != nil {
			return err
		}
		if v == "" {
			v = def
		}
		if v == "" {
			return fmt.Errorf("a base URL is required for %s", prov.ID)
		}
		baseURL = v
	}

	label := "API key"
	switch {
	case existing != nil && existing.Key != "":
		fmt.Fprintf(w, "  Current key: %s\n", yellow.Sprint(settings.MaskKey(existing.Key)))
		label = "New key (Enter keeps the current one)"
	case !prov.NeedsKey:
		label = "API key (optional)"
	}
	key, err := prompt(w, in, label)
	if err != nil {
		return err
	}
	if key == "" && existing != nil {
		key = existing.Key
	}
	if key == "" && prov.NeedsKey {
		return fmt.Errorf("no API key provided")
	}

	if err := settings.SetAPIKeyWithBaseURL(prov.ID, key, baseURL); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	logSuccess("%s credentials saved", prov.Name)
	fmt.Fprintf(w, "\n  You can now use: jta translate --provider %s\n\n", prov.ID)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials for one or all providers.

If --provider is not specified, credentials for ALL providers are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("All stored credentials removed")
				return nil
			}
			if _, ok := translate.LookupProvider(provider); !ok {
				return fmt.Errorf("unknown provider %q; run 'jta auth list' to see providers", provider)
			}
			if settings.Get(provider) == nil {
				logInfo("No credentials stored for %s", provider)
				return nil
			}
			if err := settings.Remove(provider); err != nil {
				return fmt.Errorf("removing %s credentials: %w", provider, err)
			}
			logSuccess("%s credentials removed", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider to logout (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("provider", completeProviders)
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "\n%s\n", blue.Sprint("Stored Credentials"))
			fmt.Fprintln(w, strings.Repeat("─", 60))
			if path := settings.FilePath(); path != "" {
				fmt.Fprintf(w, "  %s\n", path)
			}

			fmt.Fprintf(w, "\n  %s\n", yellow.Sprint("Providers"))
			for _, id := range translate.ProviderIDs() {
				fmt.Fprintf(w, "  %-14s %s\n", id, credentialStatus(id))
			}

			fmt.Fprintf(w, "\n  %s\n", yellow.Sprint("Environment Variables"))
			for _, name := range []string{"JTA_API_KEY", "PROVIDER_KEY"} {
				if v := os.Getenv(name); v != "" {
					fmt.Fprintf(w, "  %-14s %s (overrides stored keys)\n", name, green.Sprint(settings.MaskKey(v)))
				} else {
					fmt.Fprintf(w, "  %-14s %s\n", name, red.Sprint("not set"))
				}
			}
			fmt.Fprintln(w)
		},
	}
}

// credentialStatus describes what is stored for one provider.
func credentialStatus(id string) string {
	info := settings.Get(id)
	prov, _ := translate.LookupProvider(id)

	var status string
	switch {
	case info != nil && info.Key != "":
		status = fmt.Sprintf("%s (key: %s)", green.Sprint("configured"), settings.MaskKey(info.Key))
	case info != nil && info.BaseURL != "":
		status = fmt.Sprintf("%s (no key)", green.Sprint("configured"))
	case !prov.NeedsKey && prov.BaseURL != "":
		status = "no auth needed"
	default:
		status = red.Sprint("not configured")
	}
	if env := settings.EnvVarForProvider(id); env != "" && os.Getenv(env) != "" {
		status += fmt.Sprintf(", %s set", env)
	}
	if info != nil && info.BaseURL != "" {
		status += fmt.Sprintf("\n  %14s endpoint: %s", "", info.BaseURL)
	}
	if info != nil && info.Saved > 0 {
		status += fmt.Sprintf("\n  %14s saved %s", "", humanize.Time(time.Unix(info.Saved, 0)))
	}
	return status
}
