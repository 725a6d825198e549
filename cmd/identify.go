package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/anatomist/internal/models"
)

func newIdentifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Identify the organ shown in an image",
		Long: `Sends the image to the configured vision model and maps the answer to a
reference image from the organ catalog.`,
		Example: `  INFERENCE_PROVIDER=ollama anatomist identify figure.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider, cleanup, err := newProvider(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			resolver, err := newResolver(cfg.OrganCatalog, cfg.OrganImageDir, cfg.OrganMatch)
			if err != nil {
				return err
			}

			label := newInference(provider, cfg).ClassifyImage(cmd.Context(), data)
			result := models.LabeledImage{
				Original: args[0],
				Organ:    label.Organ,
				Labels:   label.Labels,
				Status:   models.StatusNotFound,
			}
			if ref, ok := resolver.Resolve(label.Organ); ok {
				result.ReferencePath = ref
				result.Status = models.StatusOK
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	return cmd
}
