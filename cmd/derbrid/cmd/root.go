package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	authflow "github.com/derbrid/go-authflow"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	apiURL     string
	storageDir string
)

var rootCmd = &cobra.Command{
	Use:   "derbrid",
	Short: "derbrid secure account client",
	Long: `derbrid is the command line client for the derbrid identity service.

Available commands:
  login           Sign in with your email and password
  verify          Confirm an email verification link
  reset-password  Request or confirm a password reset
  status          Show the current session
  logout          Clear the stored session

Use "derbrid [command] --help" for more information about a specific command.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadEnv)

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "identity service base URL (default $DERBRID_API_URL)")
	rootCmd.PersistentFlags().StringVar(&storageDir, "storage-dir", "", "session storage directory (default $DERBRID_STORAGE_DIR or ~/.derbrid)")
}

func loadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
}

// buildConfig resolves flags over environment over defaults.
func buildConfig() authflow.SimpleConfig {
	cfg := authflow.SimpleConfig{
		BaseURL:        apiURL,
		StorageDir:     storageDir,
		RequestTimeout: 10 * time.Second,
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("DERBRID_API_URL")
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = os.Getenv("DERBRID_STORAGE_DIR")
	}
	if cfg.StorageDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.StorageDir = filepath.Join(home, ".derbrid")
		} else {
			cfg.StorageDir = ".derbrid"
		}
	}

	return cfg
}

func openStore(cfg authflow.Config) (*authflow.SessionStore, error) {
	return authflow.NewSessionStore(cfg.GetStorageDir())
}

func newClient(cfg authflow.Config) *authflow.Client {
	return authflow.NewClient(cfg)
}

// follow prints where the shell would navigate next. The controllers hand
// back explicit navigation actions; in a terminal that just means telling
// the user where they ended up.
func follow(nav authflow.Navigation) {
	fmt.Printf("-> %s\n", nav.Destination)
}
