package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"chatlink/internal/config"
	"chatlink/internal/protocol"
)

// LocalMediaStorage implements protocol.MediaStorage on the local filesystem.
type LocalMediaStorage struct {
	basePath string // storage root, e.g. "./uploads"
	baseURL  string // URL prefix the files are served under, e.g. "/uploads"
}

// NewLocalMediaStorage creates a local media store rooted at cfg.LocalPath.
func NewLocalMediaStorage(cfg config.StorageConfig) (protocol.MediaStorage, error) {
	if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media storage directory %q: %w", cfg.LocalPath, err)
	}
	return &LocalMediaStorage{
		basePath: cfg.LocalPath,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// Upload saves the content under a generated unique name, keeping the
// original extension.
func (s *LocalMediaStorage) Upload(ctx context.Context, reader io.Reader, size int64, fileName string, mimeType string) (*protocol.FileInfo, error) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		extensions, _ := mime.ExtensionsByType(mimeType)
		if len(extensions) > 0 {
			ext = extensions[0]
		}
	}
	uniqueName := uuid.New().String() + ext
	dstPath := filepath.Join(s.basePath, uniqueName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create media file %q: %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}
	if size > 0 && written != size {
		os.Remove(dstPath)
		return nil, fmt.Errorf("media size mismatch: expected %d, wrote %d", size, written)
	}

	return &protocol.FileInfo{
		URL:      s.baseURL + "/" + url.PathEscape(uniqueName),
		Path:     dstPath,
		Size:     written,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}

// Delete removes the file a previous Upload returned, addressed by its URL.
// URLs outside this store's base are rejected.
func (s *LocalMediaStorage) Delete(ctx context.Context, fileURL string) error {
	trimmed := strings.TrimPrefix(fileURL, s.baseURL+"/")
	if trimmed == fileURL {
		return fmt.Errorf("media url %q is not managed by this store", fileURL)
	}
	name, err := url.PathUnescape(path.Base(trimmed))
	if err != nil {
		return fmt.Errorf("invalid media url %q: %w", fileURL, err)
	}
	return os.Remove(filepath.Join(s.basePath, name))
}
