package drive

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"upload-ai/domain/distribution"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
)

// mockDriveService is a mock implementation for testing
type mockDriveService struct {
	files          []*drive.File
	shouldFail     bool
	failError      error
	permissionErr  error
	lastQuery      string
	created        *drive.File
	uploaded       []byte
	uploadMime     string
	permissions    []*drive.Permission
	deletedFileIDs []string
}

func (m *mockDriveService) ListFiles(ctx context.Context, query string, fields string, orderBy string) ([]*drive.File, error) {
	m.lastQuery = query
	if m.shouldFail {
		return nil, m.failError
	}
	return m.files, nil
}

func (m *mockDriveService) CreateFile(ctx context.Context, file *drive.File, media io.Reader, mimeType string) (*drive.File, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	data, err := io.ReadAll(media)
	if err != nil {
		return nil, err
	}
	m.created = file
	m.uploaded = data
	m.uploadMime = mimeType
	return &drive.File{
		Id:       "uploaded-file-id",
		Name:     file.Name,
		MimeType: file.MimeType,
		Size:     int64(len(data)),
	}, nil
}

func (m *mockDriveService) DeleteFile(ctx context.Context, fileID string) error {
	if m.shouldFail {
		return m.failError
	}
	m.deletedFileIDs = append(m.deletedFileIDs, fileID)
	return nil
}

func (m *mockDriveService) CreatePermission(ctx context.Context, fileID string, permission *drive.Permission) error {
	if m.permissionErr != nil {
		return m.permissionErr
	}
	m.permissions = append(m.permissions, permission)
	return nil
}

func newTestClient(t *testing.T, svc *mockDriveService) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "", WithDriveService(svc))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestClient_FindFileByName(t *testing.T) {
	created := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		files    []*drive.File
		wantNil  bool
		wantID   string
		wantTime time.Time
	}{
		{
			name:    "no match",
			files:   nil,
			wantNil: true,
		},
		{
			name: "match",
			files: []*drive.File{
				{Id: "abc", Name: "output.mp3", Size: 42, CreatedTime: created.Format(time.RFC3339)},
			},
			wantID:   "abc",
			wantTime: created,
		},
		{
			name: "unparseable time",
			files: []*drive.File{
				{Id: "def", Name: "output.mp3", CreatedTime: "yesterday"},
			},
			wantID: "def",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &mockDriveService{files: tt.files})
			info, err := c.FindFileByName(context.Background(), "folder", "output.mp3")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if info != nil {
					t.Fatalf("expected nil, got %+v", info)
				}
				return
			}
			if info == nil {
				t.Fatal("expected file info")
			}
			if info.ID != tt.wantID {
				t.Errorf("expected ID %q, got %q", tt.wantID, info.ID)
			}
			if !info.CreatedTime.Equal(tt.wantTime) {
				t.Errorf("expected time %v, got %v", tt.wantTime, info.CreatedTime)
			}
		})
	}
}

func TestClient_FindFileByName_EscapesQuery(t *testing.T) {
	svc := &mockDriveService{}
	c := newTestClient(t, svc)

	if _, err := c.FindFileByName(context.Background(), "folder", "it's.mp3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `'folder' in parents and name = 'it\'s.mp3' and trashed = false`
	if svc.lastQuery != want {
		t.Errorf("expected query %q, got %q", want, svc.lastQuery)
	}
}

func TestClient_FindFileByName_Error(t *testing.T) {
	c := newTestClient(t, &mockDriveService{shouldFail: true, failError: errors.New("api down")})
	_, err := c.FindFileByName(context.Background(), "folder", "output.mp3")
	if err == nil || !strings.Contains(err.Error(), "api down") {
		t.Errorf("expected wrapped API error, got %v", err)
	}
}

func TestClient_UploadAndShare(t *testing.T) {
	svc := &mockDriveService{}
	c := newTestClient(t, svc)

	result, err := c.UploadAndShare(context.Background(), distribution.UploadRequest{
		Content:     strings.NewReader("mp3-bytes"),
		FileName:    "2026-10-18-100000-output.mp3",
		FolderID:    "folder-1",
		MimeType:    "audio/mpeg",
		Description: "keywords",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(svc.uploaded) != "mp3-bytes" {
		t.Errorf("unexpected upload content %q", svc.uploaded)
	}
	if svc.uploadMime != "audio/mpeg" {
		t.Errorf("expected audio/mpeg media type, got %q", svc.uploadMime)
	}
	if len(svc.created.Parents) != 1 || svc.created.Parents[0] != "folder-1" {
		t.Errorf("expected parent folder-1, got %v", svc.created.Parents)
	}
	if svc.created.Description != "keywords" {
		t.Errorf("expected description, got %q", svc.created.Description)
	}
	if len(svc.permissions) != 1 || svc.permissions[0].Type != "anyone" || svc.permissions[0].Role != "reader" {
		t.Errorf("expected public reader permission, got %+v", svc.permissions)
	}
	if result.FileID != "uploaded-file-id" || result.Size != int64(len("mp3-bytes")) {
		t.Errorf("unexpected result %+v", result)
	}
	if result.ShareableURL != "https://drive.google.com/file/d/uploaded-file-id/view?usp=sharing" {
		t.Errorf("unexpected URL %q", result.ShareableURL)
	}
}

func TestClient_UploadAndShare_PermissionError(t *testing.T) {
	svc := &mockDriveService{permissionErr: errors.New("forbidden")}
	c := newTestClient(t, svc)

	_, err := c.UploadAndShare(context.Background(), distribution.UploadRequest{
		Content:  strings.NewReader("x"),
		FileName: "a.mp3",
	})
	if err == nil || !strings.Contains(err.Error(), "failed to share a.mp3") {
		t.Errorf("expected share error, got %v", err)
	}
}

func TestClient_DeletePermanently(t *testing.T) {
	svc := &mockDriveService{}
	c := newTestClient(t, svc)

	if err := c.DeletePermanently(context.Background(), "file-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.deletedFileIDs) != 1 || svc.deletedFileIDs[0] != "file-1" {
		t.Errorf("expected file-1 deleted, got %v", svc.deletedFileIDs)
	}

	svc.shouldFail = true
	svc.failError = errors.New("nope")
	if err := c.DeletePermanently(context.Background(), "file-2"); err == nil {
		t.Error("expected error")
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "unable to read credentials file") {
		t.Errorf("expected credentials error, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	if err := saveToken(path, want); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}
	got, err := loadToken(path)
	if err != nil {
		t.Fatalf("loadToken failed: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
