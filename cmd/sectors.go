package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/greenatlas/wastemap/internal/sector"
)

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "List the sectors and states in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sectors"); err != nil {
			return err
		}
		catalog, err := sector.Load(cfg.Sector.CatalogPath)
		if err != nil {
			return err
		}
		for _, name := range catalog.Names() {
			fmt.Fprintln(os.Stdout, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sectorsCmd)
}
