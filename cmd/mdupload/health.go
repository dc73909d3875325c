package main

import (
	"github.com/spf13/cobra"

	"github.com/kyaoi/mdupload/internal/app"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the conversion server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Health(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
