package distribution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"upload-ai/domain/distribution"
	"upload-ai/domain/video"

	"github.com/google/uuid"
)

// UploadService uploads extracted audio to a Google Drive folder.
// It implements video.AudioSink.
type UploadService struct {
	driveClient distribution.DriveClient
	folderID    string
	output      io.Writer
	now         func() time.Time
	newID       func() string
}

// UploadOption configures an UploadService
type UploadOption func(*UploadService)

// WithClock overrides the clock used to name uploads
func WithClock(now func() time.Time) UploadOption {
	return func(s *UploadService) {
		s.now = now
	}
}

// WithIDGenerator overrides how per-upload name ids are generated
func WithIDGenerator(fn func() string) UploadOption {
	return func(s *UploadService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewUploadService creates a new upload service
func NewUploadService(client distribution.DriveClient, folderID string, output io.Writer, opts ...UploadOption) *UploadService {
	if output == nil {
		output = io.Discard
	}
	s := &UploadService{
		driveClient: client,
		folderID:    folderID,
		output:      output,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FileName returns the Drive name for an upload made at t with the given id,
// e.g. 2026-10-18-153000-<id>-output.mp3
func FileName(t time.Time, id string, audio *video.ExtractedAudio) string {
	return t.Format("2006-01-02-150405") + "-" + audio.UniqueName(id)
}

// UploadAudio uploads the audio with the prompt as its description and sets
// public sharing. Every upload gets its own name, so concurrent submits never
// replace each other; a leftover file with that exact name is replaced.
func (s *UploadService) UploadAudio(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) (*distribution.UploadResult, error) {
	if audio == nil || len(audio.Data) == 0 {
		return nil, fmt.Errorf("no audio to upload")
	}

	fileName := FileName(s.now(), s.newID(), audio)

	existing, err := s.driveClient.FindFileByName(ctx, s.folderID, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing file: %w", err)
	}
	if existing != nil {
		fmt.Fprintf(s.output, "      Replacing existing %s (%.1f KB)\n", existing.Name, float64(existing.Size)/1024)
		if err := s.driveClient.DeletePermanently(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
		}
	}

	req := distribution.UploadRequest{
		Content:     bytes.NewReader(audio.Data),
		FileName:    fileName,
		FolderID:    s.folderID,
		MimeType:    audio.MimeType,
		Description: prompt.String(),
	}

	result, err := s.driveClient.UploadAndShare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload and share %s: %w", fileName, err)
	}
	return result, nil
}

// Consume implements video.AudioSink
func (s *UploadService) Consume(ctx context.Context, audio *video.ExtractedAudio, prompt video.TranscriptionPrompt) error {
	result, err := s.UploadAudio(ctx, audio, prompt)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.output, "Uploaded: %s\n", result.ShareableURL)
	return nil
}

var _ video.AudioSink = (*UploadService)(nil)
