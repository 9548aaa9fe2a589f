package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"upload-ai/application/conversion"
	"upload-ai/application/form"
	"upload-ai/domain/video"
	"upload-ai/infrastructure/preview"
	"upload-ai/infrastructure/web"

	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the video form in a browser",
	Long: `Serve an HTML form that previews the selected video, captures a
transcription prompt, and converts the video to MP3 on submit.

Each browser gets its own form, bound by a session cookie. All forms share one
ffmpeg engine, started on the first submit.

Example:
  upload-ai serve --listen :3333`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default from config or :3333)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	listen := serveListen
	if listen == "" {
		listen = cfg.Server.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines := newEngineProvider(cfg)
	defer engines.Close()

	audioSink, err := buildSink(ctx, cfg, "", os.Stdout)
	if err != nil {
		return err
	}

	server := NewFormServer(engines, audioSink,
		web.WithOutput(os.Stderr),
		web.WithBodyLimit(cfg.Server.MaxUploadMB<<20),
		web.WithSessionTTL(cfg.Server.SessionTTL),
		web.WithSubmitTimeout(cfg.Engine.Timeout),
	)

	if err := server.Run(ctx, listen); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// NewFormServer wires a web server whose sessions share engines and audioSink
func NewFormServer(engines conversion.EngineSource, audioSink video.AudioSink, opts ...web.Option) *web.Server {
	registry := preview.NewRegistry(preview.DefaultPrefix)
	converter := conversion.NewService(engines, conversion.WithOutput(os.Stderr))

	factory := func() *form.VideoInputForm {
		return form.New(converter,
			form.WithPreviewer(registry),
			form.WithSink(audioSink),
			form.WithOutput(os.Stdout),
		)
	}
	return web.NewServer(factory, registry, opts...)
}
