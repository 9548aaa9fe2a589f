package cmd

import (
	"context"
	"fmt"
	"io"

	"upload-ai/application/conversion"
	appdistribution "upload-ai/application/distribution"
	"upload-ai/domain/video"
	"upload-ai/infrastructure/config"
	"upload-ai/infrastructure/drive"
	"upload-ai/infrastructure/ffmpeg"
	"upload-ai/infrastructure/sink"
	"upload-ai/infrastructure/whisper"
)

// newEngineProvider returns a provider that starts ffmpeg on first use
func newEngineProvider(cfg *config.Config) *conversion.EngineProvider {
	return conversion.NewEngineProvider(func(ctx context.Context) (video.Engine, error) {
		engine, err := ffmpeg.NewEngine(ctx,
			ffmpeg.WithFFmpegPath(cfg.Engine.FFmpegPath),
			ffmpeg.WithFFprobePath(cfg.Engine.FFprobePath),
			ffmpeg.WithWorkDir(cfg.Engine.WorkDir),
		)
		if err != nil {
			return nil, err
		}
		return engine, nil
	})
}

// buildSink combines the log sink with every sink enabled in cfg.
// saveDir overrides cfg.Output.Directory when set.
func buildSink(ctx context.Context, cfg *config.Config, saveDir string, output io.Writer) (video.AudioSink, error) {
	sinks := []video.AudioSink{sink.NewLog(output)}

	dir := cfg.Output.Directory
	if saveDir != "" {
		dir = saveDir
	}
	if dir != "" {
		sinks = append(sinks, sink.NewDirectory(dir, sink.WithDirectoryOutput(output)))
	}

	if cfg.DriveEnabled() {
		client, err := newDriveClient(ctx, cfg, output)
		if err != nil {
			return nil, fmt.Errorf("failed to create Drive client: %w", err)
		}
		sinks = append(sinks, appdistribution.NewUploadService(client, cfg.Google.FolderID, output))
	}

	if cfg.WhisperEnabled() {
		t, err := whisper.NewTranscriber(cfg.OpenAI.APIKey,
			whisper.WithModel(cfg.OpenAI.Model),
			whisper.WithLanguage(cfg.OpenAI.Language),
			whisper.WithOutput(output),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
		sinks = append(sinks, t)
	}

	return sink.NewMulti(sinks...), nil
}

func newDriveClient(ctx context.Context, cfg *config.Config, output io.Writer) (*drive.Client, error) {
	if cfg.Google.UseOAuth {
		return drive.NewClientWithOAuth(ctx, drive.OAuthConfig{
			CredentialsFile: cfg.Google.CredentialsFile,
			TokenFile:       cfg.Google.TokenFile,
			Output:          output,
		})
	}
	return drive.NewClient(ctx, cfg.Google.CredentialsFile)
}
