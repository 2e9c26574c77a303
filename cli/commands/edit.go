package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/verdant/core"
)

type editOptions struct {
	image   string
	mask    string
	prompt  string
	output  string
	improve bool
}

func (a *App) newEditCommand() *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a garden photo with a text instruction",
		Long: `Edit a photo with a natural-language instruction and save the result.

The image may be a file path or a data URL, so a previous result can be
refined by passing it back in.

Examples:
  verdant edit --image garden.jpg --prompt "add a stone path to the shed"
  verdant edit --image garden-edited.png --prompt "make the path wider" --output v2.png
  verdant edit --image garden.jpg --prompt "roses" --improve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runEdit(cmd.Context(), opts))
		},
	}
	addEditFlags(cmd, &opts)
	return cmd
}

func (a *App) newInpaintCommand() *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:   "inpaint",
		Short: "Edit only the masked area of a garden photo",
		Long: `Edit the white areas of a mask image and leave the rest untouched.

Examples:
  verdant inpaint --image garden.jpg --mask mask.png --prompt "a flower bed"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleError(a.runEdit(cmd.Context(), opts))
		},
	}
	addEditFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.mask, "mask", "", "mask image, white marks the area to edit (required)")
	_ = cmd.MarkFlagRequired("mask")
	return cmd
}

func addEditFlags(cmd *cobra.Command, opts *editOptions) {
	cmd.Flags().StringVar(&opts.image, "image", "", "image file or data URL (required)")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "edit instruction (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <image>-edited.<ext>, - for stdout)")
	cmd.Flags().BoolVar(&opts.improve, "improve", false, "refine the prompt before editing")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("prompt")
}

func (a *App) runEdit(ctx context.Context, opts editOptions) error {
	if strings.TrimSpace(opts.prompt) == "" {
		return validationError("prompt cannot be empty")
	}
	img, err := loadImage(opts.image)
	if err != nil {
		return err
	}

	client, err := a.buildClient()
	if err != nil {
		return err
	}

	prompt := opts.prompt
	if opts.improve {
		improved, err := client.ImprovePrompt(ctx, prompt)
		if err != nil {
			return err
		}
		a.logger.Info("prompt improved", zap.String("prompt", improved))
		prompt = improved
	}

	var result *core.EditResult
	if opts.mask != "" {
		mask, err := loadImage(opts.mask)
		if err != nil {
			return err
		}
		result, err = client.EditImageWithMask(ctx, img, mask, prompt)
		if err != nil {
			return err
		}
	} else {
		result, err = client.EditImage(ctx, img, prompt)
		if err != nil {
			return err
		}
	}

	return a.writeEditResult(result, opts, prompt)
}

func (a *App) writeEditResult(result *core.EditResult, opts editOptions, prompt string) error {
	mimeType, data, err := core.DecodeDataURL(result.Image)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = defaultOutputPath(opts.image, mimeType)
	}
	if output == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"output":   output,
			"mimeType": mimeType,
			"text":     result.Text,
			"prompt":   prompt,
		})
	}

	fmt.Fprintf(a.stdout, "Saved %s\n", output)
	if result.Text != "" {
		fmt.Fprintln(a.stdout, result.Text)
	}
	return nil
}

// loadImage reads ref as a data URL or a file path.
func loadImage(ref string) (core.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return core.Image{}, validationError("image cannot be empty")
	}
	if strings.HasPrefix(ref, "data:") {
		img, err := core.ImageFromDataURL(ref)
		if err != nil {
			return core.Image{}, exitWithCode(ExitValidation, err)
		}
		return img, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return core.Image{}, validationError("read image: %w", err)
	}
	return core.Image{Data: data, Filename: filepath.Base(ref)}, nil
}

func defaultOutputPath(input, mimeType string) string {
	base := "verdant"
	if !strings.HasPrefix(input, "data:") {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	}
	return base + "-edited" + extensionFor(mimeType)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
