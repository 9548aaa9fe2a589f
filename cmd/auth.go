package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"upload-ai/infrastructure/drive"

	"github.com/spf13/cobra"
)

var authNoBrowser bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize external services",
}

var authDriveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Authorize Google Drive uploads with OAuth",
	Long: `Opens the Google consent page and stores the resulting token in the
configured token_file. Needed once when google.use_oauth is true.

Example:
  upload-ai auth drive`,
	RunE: runAuthDrive,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authDriveCmd)
	authDriveCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Print the consent URL without opening a browser")
}

func runAuthDrive(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if cfg.Google.CredentialsFile == "" {
		return fmt.Errorf("google.credentials_file is not configured; run 'upload-ai setup' first")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return drive.Authorize(ctx, drive.OAuthConfig{
		CredentialsFile: cfg.Google.CredentialsFile,
		TokenFile:       cfg.Google.TokenFile,
		Output:          os.Stdout,
		OpenBrowser:     !authNoBrowser,
	})
}
