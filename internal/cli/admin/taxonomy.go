package admin

import (
	"fmt"

	"github.com/brightpath-consulting/kmap/internal/taxonomy"
	"github.com/spf13/cobra"
)

// TaxonomyCmd returns the taxonomy command group
func TaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Inspect taxonomy rule files",
	}
	cmd.AddCommand(taxonomyValidateCmd())
	return cmd
}

func taxonomyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a taxonomy rules file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tax, err := taxonomy.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("invalid taxonomy file: %w", err)
			}

			fmt.Printf("%s: %d rules\n", args[0], len(tax.Rules))
			for _, rule := range tax.Rules {
				fmt.Printf("  %-28s weight=%.2f keywords=%d\n", rule.Name, rule.Weight, len(rule.Keywords))
			}
			return nil
		},
	}
}
