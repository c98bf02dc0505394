package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	catalogLoader "github.com/andrescamacho/rts-production/internal/adapters/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
)

// NewCatalogCommand creates the catalog command with subcommands
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the unit cost table",
		Long: `Inspect the unit cost table used by every factory and the cost validator.

The table comes from economy.catalog_path when set, otherwise the built-in
catalog is used.

Examples:
  production-sim catalog show
  production-sim catalog show --file configs/units.yaml
  production-sim catalog export > units.yaml`,
	}

	cmd.AddCommand(newCatalogShowCommand())
	cmd.AddCommand(newCatalogExportCommand())

	return cmd
}

func newCatalogShowCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cost table",
		RunE: func(cmd *cobra.Command, args []string) error {
			costs, err := resolveCatalog(file)
			if err != nil {
				return err
			}
			return renderCatalog(cmd.OutOrStdout(), costs)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalog to read instead of the configured one")

	return cmd
}

func newCatalogExportCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cost table as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			costs, err := resolveCatalog(file)
			if err != nil {
				return err
			}
			return catalogLoader.Encode(cmd.OutOrStdout(), costs)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalog to read instead of the configured one")

	return cmd
}

func resolveCatalog(file string) (*catalog.Catalog, error) {
	if file != "" {
		return catalogLoader.LoadFile(file)
	}
	env, err := newEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using the built-in catalog\n", err)
		return catalog.Default(), nil
	}
	defer env.Close()
	return env.costs, nil
}

func renderCatalog(w io.Writer, costs *catalog.Catalog) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Unit", "Factory", "REE", "Power/s", "Build (s)", "Total Power"}),
	)
	for _, cost := range costs.Costs() {
		row := []string{
			cost.UnitType(),
			cost.ProducedBy().String(),
			formatFloat(cost.REECost()),
			formatFloat(cost.PowerCost()),
			formatFloat(cost.ProductionTime()),
			formatFloat(cost.PowerCost() * cost.ProductionTime()),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
