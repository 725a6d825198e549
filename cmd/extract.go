package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/anatomist/internal/pdf"
)

func newExtractCmd() *cobra.Command {
	var (
		outDir   string
		minBytes int64
		maxBytes int64
	)

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract text and images from a PDF without inference",
		Long: `Runs the document extractor offline. The text is written to text.txt and
images larger than --min-bytes are kept under images/ in the output directory.`,
		Example: `  anatomist extract atlas.pdf --out ./atlas`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if err := pdf.Validate(data, maxBytes); err != nil {
				return err
			}

			if outDir == "" {
				base := filepath.Base(args[0])
				outDir = strings.TrimSuffix(base, filepath.Ext(base))
			}

			extractor := pdf.NewExtractor(nil, minBytes)
			res, err := extractor.Extract(cmd.Context(), data, filepath.Join(outDir, "images"))
			if err != nil {
				return err
			}

			textPath := filepath.Join(outDir, "text.txt")
			if err := os.WriteFile(textPath, []byte(res.Text), 0644); err != nil {
				return fmt.Errorf("failed to write text: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Text: %d characters -> %s\n", len(res.Text), textPath)
			fmt.Fprintf(out, "Images: %d kept, %d dropped (<= %d bytes)\n", len(res.Images), res.Dropped, extractor.MinImageBytes())
			for _, img := range res.Images {
				fmt.Fprintf(out, "  page %d #%d  %8d bytes  %s\n", img.Page, img.Index, img.Size, img.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: PDF name without extension)")
	cmd.Flags().Int64Var(&minBytes, "min-bytes", pdf.DefaultMinImageBytes, "Discard images at or below this size")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", pdf.DefaultMaxUploadBytes, "Reject documents larger than this")

	return cmd
}
