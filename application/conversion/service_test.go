package conversion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"upload-ai/domain/video"
)

// memEngine is an in-memory video.Engine that "transcodes" by copying the
// input into the output with a prefix
type memEngine struct {
	mu       sync.Mutex
	files    map[string][]byte
	execArgs [][]string
	execErr  error
	writeErr error
	progress []float64
	closed   bool
}

func newMemEngine() *memEngine {
	return &memEngine{files: make(map[string][]byte), progress: []float64{0.1, 0.5, 1}}
}

func (m *memEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.files[name] = data
	return nil
}

func (m *memEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", video.ErrFileNotFound, name)
	}
	return data, nil
}

func (m *memEngine) DeleteFile(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *memEngine) Exec(ctx context.Context, args []string, onProgress video.ProgressFunc) error {
	m.mu.Lock()
	m.execArgs = append(m.execArgs, args)
	err := m.execErr
	input := m.files[args[1]]
	m.mu.Unlock()

	if err != nil {
		return err
	}
	for _, r := range m.progress {
		if onProgress != nil {
			onProgress(video.Progress{Ratio: r})
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[args[len(args)-1]] = append([]byte("mp3:"), input...)
	return nil
}

func (m *memEngine) Close() error {
	m.closed = true
	return nil
}

func (m *memEngine) fileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// staticSource always returns the same engine or error
type staticSource struct {
	engine video.Engine
	err    error
}

func (s staticSource) Get(ctx context.Context) (video.Engine, error) {
	return s.engine, s.err
}

func testVideo() *video.SelectedVideo {
	return &video.SelectedVideo{Name: "talk.mp4", MimeType: "video/mp4", Data: []byte("video-bytes")}
}

func TestService_Convert(t *testing.T) {
	engine := newMemEngine()
	var out bytes.Buffer
	svc := NewService(staticSource{engine: engine}, WithOutput(&out), WithIDGenerator(func() string { return "call1" }))

	audio, err := svc.Convert(context.Background(), testVideo())
	if err != nil {
		t.Fatalf("Convert() unexpected error: %v", err)
	}

	if audio.Name != "output.mp3" || audio.MimeType != "audio/mpeg" {
		t.Errorf("Convert() = %s, want output.mp3 audio/mpeg", audio)
	}
	if string(audio.Data) != "mp3:video-bytes" {
		t.Errorf("audio data = %q", audio.Data)
	}

	wantArgs := "-i call1-input.mp4 -map 0:a -b:a 20k -acodec libmp3lame call1-output.mp3"
	if got := strings.Join(engine.execArgs[0], " "); got != wantArgs {
		t.Errorf("exec args = %q, want %q", got, wantArgs)
	}

	if engine.fileCount() != 0 {
		t.Errorf("virtual files left behind: %d", engine.fileCount())
	}

	wantLog := "Convert started.\nConvert progress: 10\nConvert progress: 50\nConvert progress: 100\nConvert finished.\n"
	if out.String() != wantLog {
		t.Errorf("diagnostic output = %q, want %q", out.String(), wantLog)
	}
}

func TestService_ConvertStageErrors(t *testing.T) {
	tests := []struct {
		name      string
		source    func() staticSource
		wantStage video.Stage
		wantErr   error
	}{
		{
			name: "engine init failure",
			source: func() staticSource {
				return staticSource{err: fmt.Errorf("%w: ffmpeg not found", video.ErrEngineInit)}
			},
			wantStage: video.StageInit,
			wantErr:   video.ErrEngineInit,
		},
		{
			name: "write failure",
			source: func() staticSource {
				e := newMemEngine()
				e.writeErr = errors.New("disk full")
				return staticSource{engine: e}
			},
			wantStage: video.StageWrite,
		},
		{
			name: "missing audio stream",
			source: func() staticSource {
				e := newMemEngine()
				e.execErr = fmt.Errorf("ffmpeg audio extraction failed: %w", video.ErrNoAudioStream)
				return staticSource{engine: e}
			},
			wantStage: video.StageExec,
			wantErr:   video.ErrNoAudioStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.source()
			svc := NewService(src)

			audio, err := svc.Convert(context.Background(), testVideo())
			if err == nil {
				t.Fatalf("Convert() expected error, got audio %v", audio)
			}

			stage, ok := video.FailedStage(err)
			if !ok || stage != tt.wantStage {
				t.Errorf("FailedStage() = %q, %v, want %q", stage, ok, tt.wantStage)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if e, ok := src.engine.(*memEngine); ok && e.fileCount() != 0 {
				t.Errorf("virtual files left behind after failure: %d", e.fileCount())
			}
		})
	}
}

func TestService_ConvertNilVideo(t *testing.T) {
	svc := NewService(staticSource{engine: newMemEngine()})
	if _, err := svc.Convert(context.Background(), nil); err == nil {
		t.Error("Convert(nil) expected error")
	}
}

func TestService_ConcurrentConversionsUseDistinctNames(t *testing.T) {
	engine := newMemEngine()
	svc := NewService(staticSource{engine: engine})

	var wg sync.WaitGroup
	results := make([]*video.ExtractedAudio, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := &video.SelectedVideo{Name: "v.mp4", Data: []byte(fmt.Sprintf("video-%d", i))}
			results[i], errs[i] = svc.Convert(context.Background(), v)
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Convert() #%d unexpected error: %v", i, errs[i])
		}
		if want := fmt.Sprintf("mp3:video-%d", i); string(results[i].Data) != want {
			t.Errorf("Convert() #%d = %q, want %q", i, results[i].Data, want)
		}
	}

	seen := make(map[string]bool)
	for _, args := range engine.execArgs {
		if seen[args[1]] {
			t.Errorf("input name %q reused across calls", args[1])
		}
		seen[args[1]] = true
	}
}
