package distribution

import (
	"fmt"
	"io"
)

// UploadRequest contains the parameters needed to upload audio to Google Drive
type UploadRequest struct {
	Content     io.Reader // Bytes to upload
	FileName    string    // Target filename in Google Drive
	FolderID    string    // Target folder ID in Google Drive
	MimeType    string    // MIME type of the file
	Description string    // Stored as the Drive file description
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	FileID       string // Google Drive file ID
	FileName     string // Name of the uploaded file
	ShareableURL string // URL for sharing the file
	Size         int64  // Size of the uploaded file in bytes
}

// ShareableURL builds the public view link for a Drive file ID
func ShareableURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view?usp=sharing", fileID)
}
