package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/petal-labs/verdant/cli/keystore"
)

func (a *App) newKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
		Long: `Manage the Gemini API key. Keys are stored encrypted in ~/.verdant/keys.enc.
GEMINI_API_KEY or API_KEY in the environment (or .env) take precedence.`,
	}

	keysCmd.AddCommand(&cobra.Command{
		Use:   "set [name]",
		Short: "Store an API key (default name: gemini)",
		Long:  `Store an API key. The key is prompted without echo.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runKeysSet(keyName(args)))
		},
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored key names",
		Long:  `List stored entries. Only names are shown, never values.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runKeysList())
		},
	})
	keysCmd.AddCommand(&cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a stored API key (default name: gemini)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runKeysDelete(keyName(args)))
		},
	})

	return keysCmd
}

func keyName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return keystore.GeminiKey
}

func (a *App) runKeysSet(name string) error {
	apiKey, err := a.readSecret(fmt.Sprintf("Enter API key for %s: ", name))
	if err != nil {
		return err
	}
	if apiKey == "" {
		return validationError("API key cannot be empty")
	}

	ks, err := a.newKeystore()
	if err != nil {
		return validationError("failed to open keystore: %w", err)
	}
	if err := ks.Set(name, apiKey); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	fmt.Fprintf(a.stdout, "API key for %s stored successfully.\n", name)
	return nil
}

func (a *App) runKeysList() error {
	ks, err := a.newKeystore()
	if err != nil {
		return validationError("failed to open keystore: %w", err)
	}

	names, err := ks.List()
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "No API keys stored.")
		return nil
	}

	fmt.Fprintln(a.stdout, "Stored keys:")
	for _, name := range names {
		fmt.Fprintf(a.stdout, "  - %s\n", name)
	}
	return nil
}

func (a *App) runKeysDelete(name string) error {
	ks, err := a.newKeystore()
	if err != nil {
		return validationError("failed to open keystore: %w", err)
	}

	if err := ks.Delete(name); err != nil {
		var nf *keystore.ErrKeyNotFound
		if errors.As(err, &nf) {
			return validationError("no key stored for %s", name)
		}
		return fmt.Errorf("failed to delete key: %w", err)
	}

	fmt.Fprintf(a.stdout, "API key for %s deleted.\n", name)
	return nil
}

// readSecret prompts on stderr and reads a line without echo when stdin is a terminal.
func (a *App) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.stderr, prompt)

	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	// Fallback for non-terminal (e.g., piped input)
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
