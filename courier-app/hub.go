package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hub",
		Short: "Run the TCP hub and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), banner)
			fmt.Fprintln(cmd.OutOrStdout())

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return a.RunHub(cmd.Context())
		},
	}
}
