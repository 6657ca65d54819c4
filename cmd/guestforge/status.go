package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/guestforge/api/v1alpha1"
	"github.com/jbweber/guestforge/internal/loader"
)

var statusCmd = &cobra.Command{
	Use:   "status <manifest.yaml>...",
	Short: "Show the recorded status of guests",
	Long: `Show the status written back to guest manifests by
"guestforge install --write-status".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		guests := make([]*v1alpha1.Guest, 0, len(args))
		for _, path := range args {
			g, err := loader.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			guests = append(guests, g)
		}

		var result string
		if len(guests) == 1 && outputFormat != "table" {
			result, err = formatter.FormatGuest(guests[0])
		} else {
			result, err = formatter.FormatGuestList(guests)
		}
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

func init() {
	addOutputFlags(statusCmd)
}
