package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) newAnalyzeCommand() *cobra.Command {
	var (
		image    string
		language string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Describe a garden photo and suggest improvements",
		Long: `Describe the garden in a photo and list landscaping ideas that can be
used directly as edit prompts.

Examples:
  verdant analyze --image garden.jpg
  verdant analyze --image garden.jpg --language pt --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runAnalyze(cmd.Context(), image, language))
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image file or data URL (required)")
	cmd.Flags().StringVar(&language, "language", "", "response language code (default from config)")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (a *App) runAnalyze(ctx context.Context, imageRef, language string) error {
	img, err := loadImage(imageRef)
	if err != nil {
		return err
	}
	if language == "" && a.cfg != nil {
		language = a.cfg.Language
	}

	client, err := a.buildClient()
	if err != nil {
		return err
	}
	result, err := client.AnalyzeImage(ctx, img, language)
	if err != nil {
		return err
	}

	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(a.stdout, result.Description)
	if len(result.Suggestions) > 0 {
		fmt.Fprintln(a.stdout)
		fmt.Fprintln(a.stdout, "Suggestions:")
		for i, s := range result.Suggestions {
			fmt.Fprintf(a.stdout, "  %d. %s\n", i+1, s)
		}
	}
	return nil
}
