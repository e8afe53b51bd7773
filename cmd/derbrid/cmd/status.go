package cmd

import (
	"fmt"

	authflow "github.com/derbrid/go-authflow"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		guard := authflow.NewGuard(store)

		token, present := store.Get()

		fmt.Println(print.MaybePrettyJSON(map[string]any{
			"authenticated": guard.Authenticated(),
			"token_stored":  present,
			"token_length":  len(token),
			"storage_dir":   cfg.GetStorageDir(),
		}))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
