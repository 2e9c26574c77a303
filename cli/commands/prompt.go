package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) newImproveCommand() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "improve",
		Short: "Rewrite an edit instruction into a more detailed prompt",
		Long: `Rewrite a short edit instruction so the image model follows it more closely.
An empty prompt prints nothing and makes no API call.

Example:
  verdant improve --prompt "more flowers"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runImprove(cmd.Context(), prompt))
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to improve")
	return cmd
}

func (a *App) runImprove(ctx context.Context, prompt string) error {
	client, err := a.buildClient()
	if err != nil {
		return err
	}
	improved, err := client.ImprovePrompt(ctx, prompt)
	if err != nil {
		return err
	}

	if a.jsonOutput {
		return json.NewEncoder(a.stdout).Encode(map[string]string{"prompt": improved})
	}
	if improved != "" {
		fmt.Fprintln(a.stdout, improved)
	}
	return nil
}
