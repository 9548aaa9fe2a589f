package form

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

// mockConverter records conversions and returns a configured result
type mockConverter struct {
	mu     sync.Mutex
	calls  []*video.SelectedVideo
	err    error
	block  chan struct{}
	during func()
}

func (m *mockConverter) Convert(ctx context.Context, v *video.SelectedVideo) (*video.ExtractedAudio, error) {
	m.mu.Lock()
	m.calls = append(m.calls, v)
	m.mu.Unlock()
	if m.during != nil {
		m.during()
	}
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	return video.NewExtractedAudio([]byte("mp3:" + v.Name)), nil
}

func (m *mockConverter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockPreviewer hands out sequential URLs and tracks revocations
type mockPreviewer struct {
	next    int
	live    map[string]bool
	revoked []string
	err     error
}

func newMockPreviewer() *mockPreviewer {
	return &mockPreviewer{live: make(map[string]bool)}
}

func (m *mockPreviewer) Create(v *video.SelectedVideo) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.next++
	url := fmt.Sprintf("/preview/%d", m.next)
	m.live[url] = true
	return url, nil
}

func (m *mockPreviewer) Revoke(url string) {
	delete(m.live, url)
	m.revoked = append(m.revoked, url)
}

// mockSink records delivered audio
type mockSink struct {
	audio  []*video.ExtractedAudio
	prompt []video.TranscriptionPrompt
	err    error
}

func (m *mockSink) Consume(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) error {
	if m.err != nil {
		return m.err
	}
	m.audio = append(m.audio, audio)
	m.prompt = append(m.prompt, prompt)
	return nil
}

func mp4(name string) *video.SelectedVideo {
	return &video.SelectedVideo{Name: name, MimeType: "video/mp4", Data: []byte(name)}
}

func TestSelectFile_EmptyListKeepsSelection(t *testing.T) {
	f := New(&mockConverter{}, WithPreviewer(newMockPreviewer()))

	if err := f.SelectFile(nil); err != nil {
		t.Fatalf("SelectFile(nil) unexpected error: %v", err)
	}
	if f.State() != video.StateIdle || f.Selected() != nil {
		t.Errorf("empty selection on idle form changed state to %s", f.State())
	}

	first := mp4("first.mp4")
	if err := f.SelectFile([]*video.SelectedVideo{first}); err != nil {
		t.Fatalf("SelectFile() unexpected error: %v", err)
	}
	url := f.PreviewURL()

	if err := f.SelectFile([]*video.SelectedVideo{}); err != nil {
		t.Fatalf("SelectFile(empty) unexpected error: %v", err)
	}
	if f.Selected() != first {
		t.Error("empty list replaced the previous selection")
	}
	if f.PreviewURL() != url {
		t.Error("empty list changed the preview URL")
	}
}

func TestSelectFile_ReplacesAndRevokesPreview(t *testing.T) {
	previewer := newMockPreviewer()
	f := New(&mockConverter{}, WithPreviewer(previewer))

	if err := f.SelectFile([]*video.SelectedVideo{mp4("a.mp4"), mp4("ignored.mp4")}); err != nil {
		t.Fatalf("SelectFile() unexpected error: %v", err)
	}
	if f.Selected().Name != "a.mp4" {
		t.Errorf("Selected() = %s, want first entry a.mp4", f.Selected().Name)
	}
	firstURL := f.PreviewURL()

	if err := f.SelectFile([]*video.SelectedVideo{mp4("b.mp4")}); err != nil {
		t.Fatalf("SelectFile() unexpected error: %v", err)
	}
	if f.Selected().Name != "b.mp4" {
		t.Errorf("Selected() = %s, want b.mp4", f.Selected().Name)
	}
	if previewer.live[firstURL] {
		t.Errorf("previous preview %s was not revoked", firstURL)
	}
	if len(previewer.live) != 1 || !previewer.live[f.PreviewURL()] {
		t.Errorf("expected only the current preview to be live, got %v", previewer.live)
	}
	if f.State() != video.StateVideoSelected {
		t.Errorf("State() = %s, want %s", f.State(), video.StateVideoSelected)
	}
}

func TestSelectFile_PreviewFailureKeepsSelection(t *testing.T) {
	previewer := newMockPreviewer()
	f := New(&mockConverter{}, WithPreviewer(previewer))
	first := mp4("a.mp4")
	f.SelectFile([]*video.SelectedVideo{first})

	previewer.err = errors.New("registry full")
	if err := f.SelectFile([]*video.SelectedVideo{mp4("b.mp4")}); err == nil {
		t.Fatal("SelectFile() expected preview error")
	}
	if f.Selected() != first {
		t.Error("failed selection should keep the previous video")
	}
}

func TestSubmit_NoVideoIsSilent(t *testing.T) {
	converter := &mockConverter{}
	sink := &mockSink{}
	var out bytes.Buffer
	f := New(converter, WithSink(sink), WithOutput(&out))

	result, err := f.Submit(context.Background(), "keywords")
	if err != nil || result != nil {
		t.Fatalf("Submit() = %v, %v, want nil, nil", result, err)
	}
	if converter.callCount() != 0 {
		t.Error("Submit() without video should not convert")
	}
	if len(sink.audio) != 0 || out.Len() != 0 {
		t.Error("Submit() without video should produce no output")
	}
	if f.State() != video.StateIdle {
		t.Errorf("State() = %s, want idle", f.State())
	}
}

func TestSubmit_ConvertsAndDelivers(t *testing.T) {
	converter := &mockConverter{}
	sink := &mockSink{}
	var out bytes.Buffer
	f := New(converter, WithSink(sink), WithOutput(&out))
	f.SelectFile([]*video.SelectedVideo{mp4("talk.mp4")})

	converter.during = func() {
		if f.State() != video.StateConverting {
			t.Errorf("State() during conversion = %s, want converting", f.State())
		}
	}

	result, err := f.Submit(context.Background(), "react, go")
	if err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}

	if result.Audio.Name != "output.mp3" || result.Audio.MimeType != "audio/mpeg" {
		t.Errorf("Submit() audio = %s", result.Audio)
	}
	if result.Prompt != "react, go" || result.Video != "talk.mp4" {
		t.Errorf("Submit() result = %+v", result)
	}
	if len(sink.audio) != 1 || sink.prompt[0] != "react, go" {
		t.Errorf("sink received %d audio, prompts %v", len(sink.audio), sink.prompt)
	}
	if !strings.Contains(out.String(), "name: output.mp3") {
		t.Errorf("audio was not logged: %q", out.String())
	}
	if f.State() != video.StateConverted {
		t.Errorf("State() = %s, want converted", f.State())
	}
}

func TestSubmit_FailureReturnsStructuredError(t *testing.T) {
	converter := &mockConverter{err: &video.StageError{Stage: video.StageExec, Err: video.ErrNoAudioStream}}
	sink := &mockSink{}
	f := New(converter, WithSink(sink))
	f.SelectFile([]*video.SelectedVideo{mp4("silent.mp4")})

	result, err := f.Submit(context.Background(), "")
	if result != nil {
		t.Errorf("Submit() result = %v, want nil", result)
	}
	if !errors.Is(err, video.ErrNoAudioStream) {
		t.Fatalf("Submit() error = %v, want ErrNoAudioStream", err)
	}
	if stage, _ := video.FailedStage(err); stage != video.StageExec {
		t.Errorf("FailedStage() = %q, want exec", stage)
	}
	if f.State() != video.StateVideoSelected {
		t.Errorf("State() = %s, want video_selected so the user can retry", f.State())
	}
	if len(sink.audio) != 0 {
		t.Error("failed conversion should not reach the sink")
	}
}

func TestSubmit_SinkFailure(t *testing.T) {
	f := New(&mockConverter{}, WithSink(&mockSink{err: errors.New("upload refused")}))
	f.SelectFile([]*video.SelectedVideo{mp4("talk.mp4")})

	_, err := f.Submit(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "failed to deliver audio") {
		t.Fatalf("Submit() error = %v, want delivery error", err)
	}
	if f.State() != video.StateVideoSelected {
		t.Errorf("State() = %s, want video_selected", f.State())
	}
}

func TestSubmit_ReselectDuringConversion(t *testing.T) {
	started := make(chan struct{})
	converter := &mockConverter{block: make(chan struct{}), during: func() { close(started) }}
	f := New(converter)
	f.SelectFile([]*video.SelectedVideo{mp4("first.mp4")})

	done := make(chan *SubmitResult)
	go func() {
		result, _ := f.Submit(context.Background(), "")
		done <- result
	}()

	<-started
	f.SelectFile([]*video.SelectedVideo{mp4("second.mp4")})
	close(converter.block)

	result := <-done
	if result.Video != "first.mp4" {
		t.Errorf("Submit() converted %s, want first.mp4", result.Video)
	}
	if f.State() != video.StateVideoSelected {
		t.Errorf("State() = %s, want video_selected for the new selection", f.State())
	}
	if f.Selected().Name != "second.mp4" {
		t.Errorf("Selected() = %s, want second.mp4", f.Selected().Name)
	}
}

func TestClose_RevokesPreview(t *testing.T) {
	previewer := newMockPreviewer()
	converter := &mockConverter{}
	f := New(converter, WithPreviewer(previewer))
	f.SelectFile([]*video.SelectedVideo{mp4("a.mp4")})

	if err := f.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if len(previewer.live) != 0 {
		t.Errorf("Close() left previews live: %v", previewer.live)
	}
	if f.Selected() != nil || f.PreviewURL() != "" || f.State() != video.StateIdle {
		t.Error("Close() should release the selection")
	}
	if err := f.SelectFile([]*video.SelectedVideo{mp4("b.mp4")}); !errors.Is(err, ErrFormClosed) {
		t.Errorf("SelectFile() after Close error = %v, want ErrFormClosed", err)
	}
	if _, err := f.Submit(context.Background(), ""); !errors.Is(err, ErrFormClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrFormClosed", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close() should be a no-op, got %v", err)
	}
}
