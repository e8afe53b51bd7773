package cmd

import (
	"fmt"
	"time"

	authflow "github.com/derbrid/go-authflow"
	"github.com/spf13/cobra"
)

var (
	resetEmail           string
	resetToken           string
	resetPassword        string
	resetConfirmPassword string
)

var resetCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Request or confirm a password reset",
}

var resetRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Mail a password reset link",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		redirected := make(chan authflow.Navigation, 1)

		controller := authflow.NewResetRequestController(newClient(cfg),
			authflow.WithResetRequestNavigate(func(nav authflow.Navigation) {
				redirected <- nav
			}),
			authflow.WithResetRequestCountdown(cfg.GetResetRequestCountdown(),
				authflow.WithCountdownTick(func(remaining int) {
					fmt.Printf("Returning home in %d...\n", remaining)
				}),
			),
		)
		defer controller.Close()

		controller.SetEmail(resetEmail)

		if err := controller.Submit(cmd.Context()); err != nil {
			if status, ok := controller.Status(); ok {
				fmt.Println(status.Text)
			}
			return err
		}

		if status, ok := controller.Status(); ok {
			fmt.Println(status.Text)
		}

		if controller.State() == authflow.ResetRequestLinkSent {
			waitForRedirect(cmd, redirected, cfg.GetResetRequestCountdown())
		}

		return nil
	},
}

var resetConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Set a new password with a reset link token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		redirected := make(chan authflow.Navigation, 1)

		controller := authflow.NewResetConfirmController(newClient(cfg), resetToken,
			authflow.WithResetConfirmNavigate(func(nav authflow.Navigation) {
				redirected <- nav
			}),
		)
		defer controller.Close()

		controller.SetPassword(resetPassword)
		controller.SetConfirmPassword(resetConfirmPassword)

		if err := controller.Submit(cmd.Context()); err != nil {
			if status, ok := controller.Status(); ok {
				fmt.Println(status.Text)
			}
			return err
		}

		if status, ok := controller.Status(); ok {
			fmt.Println(status.Text)
		}

		if controller.State() == authflow.ResetConfirmSucceeded {
			waitForRedirect(cmd, redirected, cfg.GetResetConfirmCountdown())
		}

		return nil
	},
}

func waitForRedirect(cmd *cobra.Command, redirected chan authflow.Navigation, seconds int) {
	select {
	case nav := <-redirected:
		follow(nav)
	case <-time.After(time.Duration(seconds+2) * time.Second):
	case <-cmd.Context().Done():
	}
}

func init() {
	resetRequestCmd.Flags().StringVar(&resetEmail, "email", "", "account email")

	resetConfirmCmd.Flags().StringVar(&resetToken, "token", "", "reset link token")
	resetConfirmCmd.Flags().StringVar(&resetPassword, "password", "", "new password")
	resetConfirmCmd.Flags().StringVar(&resetConfirmPassword, "confirm", "", "new password, again")

	resetCmd.AddCommand(resetRequestCmd)
	resetCmd.AddCommand(resetConfirmCmd)
	rootCmd.AddCommand(resetCmd)
}
