//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"upload-ai/cmd"
	"upload-ai/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	setupCancelled  bool
	originalContent string
	output          *bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	inputIndex       int
	confirmIndex     int
}

func NewMockPrompter(inputs []string, confirms []bool) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

// Password shares the input queue
func (m *MockPrompter) Password(message string) (string, error) {
	return m.Input(message, "")
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	s := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		*s = setupContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config", "config.yaml"),
			output:     &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if s.tempDir != "" {
			os.RemoveAll(s.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, s.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, s.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run the setup command with inputs:$`, s.iRunTheSetupCommandWithInputs)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, s.iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)" and inputs:$`, s.iRunTheSetupCommandWithConfirmationAndInputs)
	ctx.Step(`^a config file should exist$`, s.aConfigFileShouldExist)
	ctx.Step(`^the config should have ffmpeg_path "([^"]*)"$`, s.theConfigShouldHaveFFmpegPath)
	ctx.Step(`^the config should have listen "([^"]*)"$`, s.theConfigShouldHaveListen)
	ctx.Step(`^the config should have output directory "([^"]*)"$`, s.theConfigShouldHaveOutputDirectory)
	ctx.Step(`^the config should have folder_id "([^"]*)"$`, s.theConfigShouldHaveFolderID)
	ctx.Step(`^the config should use OAuth for Drive$`, s.theConfigShouldUseOAuthForDrive)
	ctx.Step(`^the config should have Whisper enabled with language "([^"]*)"$`, s.theConfigShouldHaveWhisperEnabledWithLanguage)
	ctx.Step(`^the config should have no optional destinations$`, s.theConfigShouldHaveNoOptionalDestinations)
	ctx.Step(`^the setup output should contain "([^"]*)"$`, s.theSetupOutputShouldContain)
	ctx.Step(`^the setup should be cancelled$`, s.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, s.theExistingConfigShouldBeUnchanged)
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `engine:
  ffmpeg_path: /original/ffmpeg
server:
  listen: ":9000"
google:
  credentials_file: "original-creds.json"
  folder_id: "original-folder-id"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) run(inputs []string, confirms []bool) error {
	prompter := NewMockPrompter(inputs, confirms)
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, s.output)
	return s.err
}

func (s *setupContext) iRunTheSetupCommandWithInputs(table *godog.Table) error {
	inputs, confirms := parseInputTable(table)
	if err := s.run(inputs, confirms); err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	s.run(nil, []bool{confirm})
	if !confirm {
		s.setupCancelled = true
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmationAndInputs(confirmation string, table *godog.Table) error {
	confirm := strings.ToLower(confirmation) == "y"
	inputs, confirms := parseInputTable(table)

	// Prepend the overwrite confirmation
	if err := s.run(inputs, append([]bool{confirm}, confirms...)); err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}

// parseInputTable splits a prompt/value table into text answers and
// yes/no answers, keeping the order of each
func parseInputTable(table *godog.Table) ([]string, []bool) {
	var inputs []string
	var confirms []bool

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		value := row.Cells[1].Value

		switch strings.ToLower(value) {
		case "y", "n":
			confirms = append(confirms, strings.ToLower(value) == "y")
		default:
			inputs = append(inputs, value)
		}
	}

	return inputs, confirms
}

func (s *setupContext) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveFFmpegPath(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Engine.FFmpegPath != expected {
		return fmt.Errorf("expected ffmpeg_path %q, got %q", expected, cfg.Engine.FFmpegPath)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveListen(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.Listen != expected {
		return fmt.Errorf("expected listen %q, got %q", expected, cfg.Server.Listen)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveOutputDirectory(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Output.Directory != expected {
		return fmt.Errorf("expected output directory %q, got %q", expected, cfg.Output.Directory)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveFolderID(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Google.FolderID != expected {
		return fmt.Errorf("expected folder_id %q, got %q", expected, cfg.Google.FolderID)
	}
	return nil
}

func (s *setupContext) theConfigShouldUseOAuthForDrive() error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Google.UseOAuth || cfg.Google.TokenFile == "" {
		return fmt.Errorf("expected OAuth with a token file, got %+v", cfg.Google)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveWhisperEnabledWithLanguage(language string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.OpenAI.Enabled {
		return fmt.Errorf("expected Whisper to be enabled")
	}
	if cfg.OpenAI.Language != language {
		return fmt.Errorf("expected language %q, got %q", language, cfg.OpenAI.Language)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveNoOptionalDestinations() error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Output.Directory != "" || cfg.Google.FolderID != "" || cfg.OpenAI.Enabled {
		return fmt.Errorf("expected no optional destinations, got %+v", cfg)
	}
	return nil
}

func (s *setupContext) theSetupOutputShouldContain(expected string) error {
	if !strings.Contains(s.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", expected, s.output.String())
	}
	return nil
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if !s.setupCancelled {
		return fmt.Errorf("expected setup to be cancelled")
	}
	if !strings.Contains(s.output.String(), "Setup cancelled.") {
		return fmt.Errorf("expected cancellation message, got %q", s.output.String())
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
