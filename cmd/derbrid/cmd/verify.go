package cmd

import (
	"fmt"
	"net/url"
	"time"

	authflow "github.com/derbrid/go-authflow"
	"github.com/spf13/cobra"
)

var (
	verifyToken string
	verifyLink  string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Confirm an email verification link",
	Long: `Confirm the verification link mailed to a freshly registered account.

Pass either the full link with --link or just its token with --token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := verifyTarget()
		if err != nil {
			return err
		}

		cfg := buildConfig()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		redirected := make(chan authflow.Navigation, 1)

		verifier := authflow.NewEmailVerifier(newClient(cfg), store,
			authflow.WithVerifyNavigate(func(nav authflow.Navigation) {
				redirected <- nav
			}),
		)
		defer verifier.Close()

		fmt.Println(verifier.Status().Text)

		runErr := verifier.Run(cmd.Context(), target)
		fmt.Println(verifier.Status().Text)
		if runErr != nil {
			return runErr
		}

		// The redirect fires after a short on-screen pause.
		select {
		case nav := <-redirected:
			follow(nav)
		case <-time.After(5 * time.Second):
		case <-cmd.Context().Done():
		}

		return nil
	},
}

func verifyTarget() (*url.URL, error) {
	if verifyLink != "" {
		target, err := url.Parse(verifyLink)
		if err != nil {
			return nil, fmt.Errorf("could not parse verification link: %w", err)
		}
		return target, nil
	}

	target := &url.URL{Path: "/verify-email"}
	if verifyToken != "" {
		target.RawQuery = url.Values{authflow.TokenParam: {verifyToken}}.Encode()
	}
	return target, nil
}

func init() {
	verifyCmd.Flags().StringVar(&verifyToken, "token", "", "verification token")
	verifyCmd.Flags().StringVar(&verifyLink, "link", "", "full verification link")

	rootCmd.AddCommand(verifyCmd)
}
