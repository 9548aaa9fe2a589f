package cmd

import (
	"fmt"
	"os"

	"upload-ai/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "upload-ai",
	Short: "Convert videos to compact MP3 audio for transcription",
	Long: `upload-ai takes a video, keeps a transcription prompt alongside it, and
extracts the audio track as a 20 kbit/s MP3 ready for transcription.

  - convert: run one video through the form from the command line
  - serve:   serve the video form in a browser
  - setup:   create the configuration file interactively
  - auth:    authorize Google Drive uploads

Example:
  upload-ai convert --file talk.mp4 --prompt "kubernetes, helm, argo"`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with overrides")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// A missing file is fine; every setting has a default.
	cfg, cfgErr = config.LoadOrDefault(cfgFile, nil)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}
