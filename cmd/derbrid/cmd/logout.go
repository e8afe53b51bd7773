package cmd

import (
	"fmt"

	authflow "github.com/derbrid/go-authflow"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		guard := authflow.NewGuard(store)
		if err := guard.Logout(cmd.Context()); err != nil {
			return err
		}

		fmt.Println("Signed out.")
		follow(guard.Redirect())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
