package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	authflow "github.com/derbrid/go-authflow"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		controller := authflow.NewLoginController(newClient(cfg), store)
		controller.SetCredentials(loginEmail, loginPassword)

		nav, err := controller.Submit(cmd.Context())
		if err != nil {
			if status, ok := controller.Status(); ok {
				fmt.Println(status.Text)
			}
			return err
		}

		if status, ok := controller.Status(); ok {
			fmt.Println(status.Text)
		}

		if controller.State() == authflow.LoginPendingVerification {
			return offerResend(cmd, controller)
		}

		if controller.State() == authflow.LoginAuthenticated {
			follow(nav)
		}

		return nil
	},
}

// offerResend drives the resend-activation sub-flow from the terminal.
func offerResend(cmd *cobra.Command, controller *authflow.LoginController) error {
	fmt.Print("Resend the activation email? [y/N] ")

	reader := bufio.NewReader(cmd.InOrStdin())
	answer, err := reader.ReadString('\n')
	if err != nil {
		return nil
	}

	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		return nil
	}

	if err := controller.ResendActivation(cmd.Context()); err != nil {
		return err
	}
	if status, ok := controller.Status(); ok {
		fmt.Println(status.Text)
	}

	return nil
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", os.Getenv("DERBRID_EMAIL"), "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", os.Getenv("DERBRID_PASSWORD"), "account password")

	rootCmd.AddCommand(loginCmd)
}
