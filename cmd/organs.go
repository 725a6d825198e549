package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/anatomist/internal/config"
)

func newOrgansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organs",
		Short: "Inspect the organ catalog",
	}
	cmd.AddCommand(newOrgansListCmd())
	return cmd
}

func newOrgansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print catalog synonyms in resolution order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			resolver, err := newResolver(cfg.OrganCatalog, cfg.OrganImageDir, cfg.OrganMatch)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SYNONYM\tFILE\tSTATUS")
			for _, entry := range resolver.Catalog().Entries() {
				status := "ok"
				if _, err := os.Stat(filepath.Join(resolver.ImageDir(), entry.File)); err != nil {
					status = "missing"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Synonym, entry.File, status)
			}
			return tw.Flush()
		},
	}
}
