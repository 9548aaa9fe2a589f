package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"upload-ai/application/conversion"
	"upload-ai/application/form"
	appvideo "upload-ai/application/video"
	"upload-ai/domain/video"
	"upload-ai/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var (
	convertFiles   []string
	convertPrompt  string
	convertSaveDir string
	convertTimeout time.Duration
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a video to MP3 audio",
	Long: `Select a video, attach a transcription prompt, and extract its audio track
as a 20 kbit/s MP3 (libmp3lame).

Only the first --file is converted; any others are checked for existence and
otherwise ignored. With no --file nothing is converted.

The audio is always logged. It is also saved to --save-dir (or the configured
output directory), uploaded to Google Drive, and sent to Whisper when those
are configured.

Example:
  upload-ai convert --file talk.mp4 --prompt "kubernetes, helm" --save-dir ./audio
  upload-ai convert --file long.mp4 --timeout 30m`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringArrayVar(&convertFiles, "file", nil, "Path to a video file (repeatable, first one wins)")
	convertCmd.Flags().StringVar(&convertPrompt, "prompt", "", "Transcription prompt, keywords separated by comma")
	convertCmd.Flags().StringVar(&convertSaveDir, "save-dir", "", "Directory to save converted audio (overrides config)")
	convertCmd.Flags().DurationVar(&convertTimeout, "timeout", 0, "Abort the conversion after this long (default from config)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := convertTimeout
	if timeout <= 0 {
		timeout = cfg.Engine.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	engines := newEngineProvider(cfg)
	defer engines.Close()

	audioSink, err := buildSink(ctx, cfg, convertSaveDir, os.Stdout)
	if err != nil {
		return err
	}

	loader := appvideo.NewSelectService(filesystem.NewChecker(), filesystem.NewReader(0))
	converter := conversion.NewService(engines, conversion.WithOutput(os.Stderr))

	return RunConvertWithDependencies(ctx, loader, converter, audioSink, convertFiles, convertPrompt, os.Stdout)
}

// VideoLoader loads local video files for selection
type VideoLoader interface {
	Load(paths []string) ([]*video.SelectedVideo, error)
}

// RunConvertWithDependencies runs the convert command with injected dependencies (for testing)
func RunConvertWithDependencies(
	ctx context.Context,
	loader VideoLoader,
	converter form.Converter,
	audioSink video.AudioSink,
	files []string,
	prompt string,
	output OutputWriter,
) error {
	videos, err := loader.Load(files)
	if err != nil {
		return err
	}

	f := form.New(converter, form.WithSink(audioSink), form.WithOutput(output))
	defer f.Close()

	if err := f.SelectFile(videos); err != nil {
		return err
	}
	if v := f.Selected(); v != nil {
		fmt.Fprintf(output, "Selected %s (%.1f MB)\n", v.Name, float64(v.Size())/1024/1024)
	}

	result, err := f.Submit(ctx, video.TranscriptionPrompt(prompt))
	if err != nil {
		if stage, ok := video.FailedStage(err); ok {
			return fmt.Errorf("conversion failed at %s stage: %w", stage, err)
		}
		return err
	}
	if result == nil {
		fmt.Fprintln(output, "No video selected; nothing to convert.")
		return nil
	}

	fmt.Fprintf(output, "Successfully converted %s to %s (%d bytes)\n", result.Video, result.Audio.Name, result.Audio.Size())
	return nil
}
