package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/verdant/cli/settings"
	"github.com/petal-labs/verdant/core"
)

func (a *App) newSettingsCommand() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the custom API endpoint",
		Long: `Route generation calls to a custom HTTP endpoint instead of Gemini.
The endpoint is used only when both the URL and the key are set.`,
	}

	var endpoint string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Save the custom endpoint URL and key",
		Long: `Save the custom endpoint. The key is prompted without echo.

Example:
  verdant settings set --url https://images.example.com/generate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runSettingsSet(endpoint))
		},
	}
	setCmd.Flags().StringVar(&endpoint, "url", "", "custom endpoint URL (required)")
	_ = setCmd.MarkFlagRequired("url")

	settingsCmd.AddCommand(setCmd)
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current endpoint settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runSettingsShow(cmd))
		},
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Remove the custom endpoint and use Gemini",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runSettingsReset())
		},
	})

	return settingsCmd
}

func (a *App) settingsStore() (*settings.Store, error) {
	ks, err := a.newKeystore()
	if err != nil {
		return nil, validationError("failed to open keystore: %w", err)
	}
	return settings.New(ks), nil
}

func (a *App) runSettingsSet(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError("invalid endpoint URL %q: must be an absolute http(s) URL", endpoint)
	}

	key, err := a.readSecret("Enter API key for the custom endpoint: ")
	if err != nil {
		return err
	}
	if key == "" {
		return validationError("API key cannot be empty")
	}

	store, err := a.settingsStore()
	if err != nil {
		return err
	}
	if err := store.Save(core.TransportConfig{EndpointURL: endpoint, APIKey: core.NewSecret(key)}); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Fprintln(a.stdout, "Settings saved. Generation calls now use the custom endpoint.")
	return nil
}

func (a *App) runSettingsShow(cmd *cobra.Command) error {
	store, err := a.settingsStore()
	if err != nil {
		return err
	}
	cfg, err := store.TransportConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	target := "gemini"
	if cfg.UseCustom() {
		target = "custom"
	}

	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"url":    cfg.EndpointURL,
			"keySet": !cfg.APIKey.IsEmpty(),
			"active": target,
		})
	}

	endpoint := cfg.EndpointURL
	if endpoint == "" {
		endpoint = "(not set)"
	}
	key := "(not set)"
	if !cfg.APIKey.IsEmpty() {
		key = cfg.APIKey.String()
	}
	fmt.Fprintf(a.stdout, "url:    %s\n", endpoint)
	fmt.Fprintf(a.stdout, "key:    %s\n", key)
	fmt.Fprintf(a.stdout, "active: %s\n", target)
	return nil
}

func (a *App) runSettingsReset() error {
	store, err := a.settingsStore()
	if err != nil {
		return err
	}
	if err := store.Reset(); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	fmt.Fprintln(a.stdout, "Settings reset. Generation calls now use Gemini.")
	return nil
}
