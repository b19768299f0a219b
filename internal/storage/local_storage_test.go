package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chatlink/internal/config"
)

func newTestMediaStorage(t *testing.T) (*LocalMediaStorage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalMediaStorage(config.StorageConfig{
		Type:      "local",
		LocalPath: dir,
		BaseURL:   "/uploads",
	})
	require.NoError(t, err)
	return store.(*LocalMediaStorage), dir
}

func TestLocalMediaStorage_UploadAndDelete(t *testing.T) {
	req := require.New(t)
	store, dir := newTestMediaStorage(t)
	ctx := context.Background()

	content := "not really a png"
	info, err := store.Upload(ctx, strings.NewReader(content), int64(len(content)), "photo.png", "image/png")
	req.NoError(err)
	req.True(strings.HasPrefix(info.URL, "/uploads/"))
	req.True(strings.HasSuffix(info.Path, ".png"))
	req.EqualValues(len(content), info.Size)
	req.Equal("photo.png", info.FileName)

	written, err := os.ReadFile(info.Path)
	req.NoError(err)
	req.Equal(content, string(written))

	// Two uploads of the same file name never collide.
	second, err := store.Upload(ctx, strings.NewReader(content), int64(len(content)), "photo.png", "image/png")
	req.NoError(err)
	req.NotEqual(info.URL, second.URL)

	req.NoError(store.Delete(ctx, info.URL))
	_, err = os.Stat(info.Path)
	req.True(os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Len(entries, 1)
}

func TestLocalMediaStorage_Upload_SizeMismatch(t *testing.T) {
	req := require.New(t)
	store, dir := newTestMediaStorage(t)

	_, err := store.Upload(context.Background(), strings.NewReader("short"), 100, "photo.png", "image/png")
	req.Error(err)

	// The partial file was cleaned up.
	entries, err := os.ReadDir(dir)
	req.NoError(err)
	req.Empty(entries)
}

func TestLocalMediaStorage_Delete_RejectsForeignURL(t *testing.T) {
	req := require.New(t)
	store, _ := newTestMediaStorage(t)

	req.Error(store.Delete(context.Background(), "https://elsewhere.example/file.png"))
}
