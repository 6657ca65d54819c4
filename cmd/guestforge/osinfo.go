package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var osinfoCmd = &cobra.Command{
	Use:   "osinfo",
	Short: "Inspect the OS dictionary",
}

var osinfoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known OS variants",
	Long: `List the OS types and variants a manifest may name in spec.os.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML sequence
  -o json   JSON array`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		tbl, err := loadOSDict()
		if err != nil {
			return err
		}

		osType, _ := cmd.Flags().GetString("type")
		if osType != "" && !tbl.HasOSType(osType) {
			return fmt.Errorf("unknown OS type %q", osType)
		}

		result, err := formatter.FormatVariants(tbl.Variants(osType))
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

func init() {
	osinfoListCmd.Flags().String("type", "", "Only list variants of this OS type")
	addOutputFlags(osinfoListCmd)
	osinfoCmd.AddCommand(osinfoListCmd)
}
