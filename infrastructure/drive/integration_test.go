//go:build manual

package drive

import (
	"context"
	"os"
	"strings"
	"testing"

	"upload-ai/domain/distribution"
)

// TestRealDriveUpload uploads a tiny file to a real folder and removes it again
// Run with: UPLOAD_AI_DRIVE_FOLDER=<id> go test -tags=manual -v ./infrastructure/drive/... -run TestRealDriveUpload
func TestRealDriveUpload(t *testing.T) {
	credentialsPath := "../../credentials.json"
	folderID := os.Getenv("UPLOAD_AI_DRIVE_FOLDER")

	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		t.Skip("credentials.json not found - skipping real Drive test")
	}
	if folderID == "" {
		t.Skip("UPLOAD_AI_DRIVE_FOLDER not set - skipping real Drive test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, credentialsPath)
	if err != nil {
		t.Fatalf("Failed to create Drive client: %v", err)
	}

	result, err := client.UploadAndShare(ctx, distribution.UploadRequest{
		Content:  strings.NewReader("manual test"),
		FileName: "upload-ai-manual-test.mp3",
		FolderID: folderID,
		MimeType: "audio/mpeg",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	t.Logf("Uploaded %s: %s", result.FileName, result.ShareableURL)

	if err := client.DeletePermanently(ctx, result.FileID); err != nil {
		t.Errorf("Cleanup failed: %v", err)
	}
}
