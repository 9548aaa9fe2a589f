//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"upload-ai/application/conversion"
	appvideo "upload-ai/application/video"
	"upload-ai/cmd"
	"upload-ai/domain/video"
	"upload-ai/infrastructure/filesystem"
	"upload-ai/infrastructure/sink"

	"github.com/cucumber/godog"
)

// lockedBuffer is a bytes.Buffer safe for the concurrent writes of fanned-out sinks
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeEngine keeps virtual files in memory and fakes ffmpeg
type fakeEngine struct {
	mu      sync.Mutex
	files   map[string][]byte
	args    []string
	inputs  [][]byte
	noAudio bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{files: make(map[string][]byte)}
}

func (e *fakeEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[name] = data
	e.inputs = append(e.inputs, data)
	return nil
}

func (e *fakeEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, video.ErrFileNotFound)
	}
	return data, nil
}

func (e *fakeEngine) DeleteFile(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.files, name)
	return nil
}

func (e *fakeEngine) Exec(ctx context.Context, args []string, onProgress video.ProgressFunc) error {
	e.mu.Lock()
	e.args = append([]string(nil), args...)
	e.mu.Unlock()

	if e.noAudio {
		return fmt.Errorf("ffmpeg: Stream map '0:a' matches no streams (%w)", video.ErrNoAudioStream)
	}
	for _, r := range []float64{0.25, 0.5, 1} {
		if onProgress != nil {
			onProgress(video.Progress{Ratio: r})
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[args[len(args)-1]] = []byte("ID3 fake mp3")
	return nil
}

func (e *fakeEngine) Close() error {
	return nil
}

// convertContext holds test state for convert scenarios
type convertContext struct {
	dir        string
	saveDir    string
	id         string
	engine     *fakeEngine
	initErr    error
	provider   *conversion.EngineProvider
	output     *lockedBuffer
	diagnostic *lockedBuffer
	err        error
}

// SharedConvertContext is reset before each scenario via Before hook
var SharedConvertContext *convertContext

func getConvertContext() *convertContext {
	return SharedConvertContext
}

func InitializeConvertScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "convert-test-*")
		if err != nil {
			return c, err
		}
		SharedConvertContext = &convertContext{
			dir:        dir,
			engine:     newFakeEngine(),
			output:     &lockedBuffer{},
			diagnostic: &lockedBuffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if e := getConvertContext(); e != nil {
			if e.provider != nil {
				e.provider.Close()
			}
			os.RemoveAll(e.dir)
		}
		SharedConvertContext = nil
		return c, nil
	})

	ctx.Step(`^the conversion ID is "([^"]*)"$`, theConversionIDIs)
	ctx.Step(`^a video file "([^"]*)" with an audio track$`, aVideoFileWithAnAudioTrack)
	ctx.Step(`^a video file "([^"]*)" without an audio track$`, aVideoFileWithoutAnAudioTrack)
	ctx.Step(`^the engine fails to start$`, theEngineFailsToStart)
	ctx.Step(`^audio is saved to a directory$`, audioIsSavedToADirectory)
	ctx.Step(`^I convert "([^"]*)" with prompt "([^"]*)"$`, iConvertWithPrompt)
	ctx.Step(`^I attempt to convert "([^"]*)" with prompt "([^"]*)"$`, iAttemptToConvertWithPrompt)
	ctx.Step(`^the conversion should succeed$`, theConversionShouldSucceed)
	ctx.Step(`^the audio should be named "([^"]*)" with type "([^"]*)"$`, theAudioShouldBeNamedWithType)
	ctx.Step(`^ffmpeg should have been called with arguments:$`, ffmpegShouldHaveBeenCalledWithArguments)
	ctx.Step(`^the diagnostic output should contain "([^"]*)"$`, theDiagnosticOutputShouldContain)
	ctx.Step(`^the output should contain "([^"]*)"$`, theOutputShouldContain)
	ctx.Step(`^no virtual files should remain$`, noVirtualFilesShouldRemain)
	ctx.Step(`^the engine should have received the contents of "([^"]*)"$`, theEngineShouldHaveReceivedTheContentsOf)
	ctx.Step(`^the engine should not have been started$`, theEngineShouldNotHaveBeenStarted)
	ctx.Step(`^I should receive an error containing "([^"]*)"$`, iShouldReceiveAnErrorContaining)
	ctx.Step(`^I should receive an error at the "([^"]*)" stage$`, iShouldReceiveAnErrorAtTheStage)
	ctx.Step(`^the error should report a missing audio stream$`, theErrorShouldReportAMissingAudioStream)
	ctx.Step(`^a saved audio file ending in "([^"]*)" should exist$`, aSavedAudioFileShouldExist)
}

func theConversionIDIs(id string) error {
	getConvertContext().id = id
	return nil
}

func aVideoFileWithAnAudioTrack(name string) error {
	e := getConvertContext()
	return os.WriteFile(filepath.Join(e.dir, name), []byte("video:"+name), 0644)
}

func aVideoFileWithoutAnAudioTrack(name string) error {
	e := getConvertContext()
	e.engine.noAudio = true
	return os.WriteFile(filepath.Join(e.dir, name), []byte("silent:"+name), 0644)
}

func theEngineFailsToStart() error {
	getConvertContext().initErr = errors.New("ffmpeg not found in PATH")
	return nil
}

func audioIsSavedToADirectory() error {
	e := getConvertContext()
	e.saveDir = filepath.Join(e.dir, "audio")
	return nil
}

func (e *convertContext) run(files, prompt string) error {
	var paths []string
	for _, name := range strings.Split(files, ",") {
		if name = strings.TrimSpace(name); name != "" {
			paths = append(paths, filepath.Join(e.dir, name))
		}
	}

	e.provider = conversion.NewEngineProvider(func(ctx context.Context) (video.Engine, error) {
		if e.initErr != nil {
			return nil, e.initErr
		}
		return e.engine, nil
	})

	id := e.id
	converter := conversion.NewService(e.provider,
		conversion.WithOutput(e.diagnostic),
		conversion.WithIDGenerator(func() string { return id }),
	)

	sinks := []video.AudioSink{sink.NewLog(e.output)}
	if e.saveDir != "" {
		sinks = append(sinks, sink.NewDirectory(e.saveDir, sink.WithDirectoryOutput(e.output)))
	}

	loader := appvideo.NewSelectService(filesystem.NewChecker(), filesystem.NewReader(0))

	e.err = cmd.RunConvertWithDependencies(
		context.Background(),
		loader,
		converter,
		sink.NewMulti(sinks...),
		paths,
		prompt,
		e.output,
	)
	return e.err
}

func iConvertWithPrompt(files, prompt string) error {
	e := getConvertContext()
	if err := e.run(files, prompt); err != nil {
		return fmt.Errorf("unexpected error: %v", err)
	}
	return nil
}

func iAttemptToConvertWithPrompt(files, prompt string) error {
	e := getConvertContext()
	e.run(files, prompt)
	return nil
}

func theConversionShouldSucceed() error {
	e := getConvertContext()
	if e.err != nil {
		return fmt.Errorf("expected success, got: %v", e.err)
	}
	return nil
}

func theAudioShouldBeNamedWithType(name, mimeType string) error {
	e := getConvertContext()
	want := fmt.Sprintf("Audio ready: %s (%s,", name, mimeType)
	if !strings.Contains(e.output.String(), want) {
		return fmt.Errorf("expected %q in output, got:\n%s", want, e.output.String())
	}
	return nil
}

func ffmpegShouldHaveBeenCalledWithArguments(table *godog.Table) error {
	e := getConvertContext()
	var expected []string
	for _, row := range table.Rows {
		for _, cell := range row.Cells {
			expected = append(expected, cell.Value)
		}
	}

	if strings.Join(e.engine.args, " ") != strings.Join(expected, " ") {
		return fmt.Errorf("expected args %v, got %v", expected, e.engine.args)
	}
	return nil
}

func theDiagnosticOutputShouldContain(expected string) error {
	e := getConvertContext()
	if !strings.Contains(e.diagnostic.String(), expected) {
		return fmt.Errorf("expected diagnostic output to contain %q, got:\n%s", expected, e.diagnostic.String())
	}
	return nil
}

func theOutputShouldContain(expected string) error {
	e := getConvertContext()
	if !strings.Contains(e.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", expected, e.output.String())
	}
	return nil
}

func noVirtualFilesShouldRemain() error {
	e := getConvertContext()
	e.engine.mu.Lock()
	defer e.engine.mu.Unlock()
	if len(e.engine.files) != 0 {
		return fmt.Errorf("expected no virtual files, found %d", len(e.engine.files))
	}
	return nil
}

func theEngineShouldHaveReceivedTheContentsOf(name string) error {
	e := getConvertContext()
	want := "video:" + name
	if len(e.engine.inputs) != 1 || string(e.engine.inputs[0]) != want {
		return fmt.Errorf("expected one input %q, got %q", want, e.engine.inputs)
	}
	return nil
}

func theEngineShouldNotHaveBeenStarted() error {
	e := getConvertContext()
	if e.provider != nil && e.provider.Initialized() {
		return fmt.Errorf("expected the engine not to be started")
	}
	return nil
}

func iShouldReceiveAnErrorContaining(expected string) error {
	e := getConvertContext()
	if e.err == nil {
		return fmt.Errorf("expected an error, got none")
	}
	if !strings.Contains(e.err.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got: %v", expected, e.err)
	}
	return nil
}

func iShouldReceiveAnErrorAtTheStage(stage string) error {
	e := getConvertContext()
	got, ok := video.FailedStage(e.err)
	if !ok {
		return fmt.Errorf("expected a stage error, got: %v", e.err)
	}
	if string(got) != stage {
		return fmt.Errorf("expected stage %q, got %q", stage, got)
	}
	return nil
}

func theErrorShouldReportAMissingAudioStream() error {
	e := getConvertContext()
	if !errors.Is(e.err, video.ErrNoAudioStream) {
		return fmt.Errorf("expected ErrNoAudioStream, got: %v", e.err)
	}
	return nil
}

func aSavedAudioFileShouldExist(suffix string) error {
	e := getConvertContext()
	matches, err := filepath.Glob(filepath.Join(e.saveDir, "*"+suffix))
	if err != nil {
		return err
	}
	if len(matches) != 1 {
		return fmt.Errorf("expected one file ending in %s in %s, found %v", suffix, e.saveDir, matches)
	}
	return nil
}
