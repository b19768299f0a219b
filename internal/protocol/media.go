package protocol

import (
	"context"
	"io"
)

// MediaStorage abstracts the object store that holds message media. The
// interface lives here so storage and services can depend on it without
// importing each other.
type MediaStorage interface {
	// Upload stores the reader's content and returns the stored file's info,
	// including a retrievable URL.
	Upload(ctx context.Context, reader io.Reader, size int64, fileName string, mimeType string) (*FileInfo, error)

	// Delete removes a previously stored file by the URL Upload returned.
	// Deleting an unknown URL is an error the caller may choose to swallow.
	Delete(ctx context.Context, url string) error
}

// FileInfo describes a stored media object.
type FileInfo struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
}
