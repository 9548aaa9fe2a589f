package cmd

import (
	"fmt"
	"os"

	"upload-ai/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Password(message string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Password(message string) (string, error) {
	result := ""
	if err := survey.AskOne(&survey.Password{Message: message}, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through locating ffmpeg, choosing where the form is
served, and enabling the optional audio destinations (a local directory,
Google Drive, and OpenAI Whisper).`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, os.Stdout)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, output OutputWriter) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, "Welcome to upload-ai setup!")
	fmt.Fprintln(output)

	cfg := &config.Config{}

	steps := []func(Prompter, *config.Config) error{
		promptEngine,
		promptServer,
		promptOutput,
		promptGoogle,
		promptOpenAI,
	}
	for _, step := range steps {
		if err := step(prompter, cfg); err != nil {
			return err
		}
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Configuration saved to %s\n", configPath)
	if cfg.Google.UseOAuth {
		fmt.Fprintln(output, "Run 'upload-ai auth drive' to authorize Google Drive uploads.")
	}
	return nil
}

func promptEngine(prompter Prompter, cfg *config.Config) error {
	ffmpegPath, err := prompter.Input("Path to ffmpeg?", config.DefaultFFmpeg)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffmpegPath == "" {
		ffmpegPath = config.DefaultFFmpeg
	}
	cfg.Engine.FFmpegPath = ffmpegPath

	ffprobePath, err := prompter.Input("Path to ffprobe?", config.DefaultFFprobe)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffprobePath == "" {
		ffprobePath = config.DefaultFFprobe
	}
	cfg.Engine.FFprobePath = ffprobePath
	cfg.Engine.Timeout = config.DefaultTimeout

	return nil
}

func promptServer(prompter Prompter, cfg *config.Config) error {
	listen, err := prompter.Input("Address for the web form?", config.DefaultListen)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if listen == "" {
		listen = config.DefaultListen
	}
	cfg.Server.Listen = listen
	return nil
}

func promptOutput(prompter Prompter, cfg *config.Config) error {
	save, err := prompter.Confirm("Save converted audio to a local directory?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !save {
		return nil
	}

	dir, err := prompter.Input("Where should audio files go?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if dir == "" {
		return fmt.Errorf("audio directory is required")
	}
	cfg.Output.Directory = dir
	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Upload converted audio to Google Drive?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}

	credentials, err := prompter.Input("Path to Google credentials file?", "credentials.json")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if credentials == "" {
		credentials = "credentials.json"
	}
	cfg.Google.CredentialsFile = credentials

	useOAuth, err := prompter.Confirm("Is this an OAuth client (not a service account)?", true)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Google.UseOAuth = useOAuth
	if useOAuth {
		cfg.Google.TokenFile = config.DefaultTokenFile
	}

	folder, err := prompter.Input("Google Drive folder ID for audio?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.FolderID = folder

	return nil
}

func promptOpenAI(prompter Prompter, cfg *config.Config) error {
	enable, err := prompter.Confirm("Transcribe converted audio with OpenAI Whisper?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !enable {
		return nil
	}
	cfg.OpenAI.Enabled = true
	cfg.OpenAI.Model = config.DefaultModel

	key, err := prompter.Password("OpenAI API key (leave empty to use " + config.EnvOpenAIKey + ")?")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.OpenAI.APIKey = key

	language, err := prompter.Input("Spoken language (ISO-639-1, empty to auto-detect)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.OpenAI.Language = language

	return nil
}
