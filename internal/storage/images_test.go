package storage_test

import (
	"bytes"
	"context"
	"ms-events/internal/storage"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "UploadedImages")
	store, err := storage.NewLocalImageStore(dir, "UploadedImages")
	require.NoError(t, err)

	content := []byte("fake-jpeg-bytes")
	p, err := store.Save(context.Background(), "1.JPG", bytes.NewReader(content))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, "UploadedImages/"))
	assert.True(t, strings.HasSuffix(p, ".jpg"))

	written, err := os.ReadFile(filepath.Join(dir, filepath.Base(p)))
	require.NoError(t, err)
	assert.Equal(t, content, written)
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store, err := storage.NewLocalImageStore(t.TempDir(), "UploadedImages")
	require.NoError(t, err)

	first, err := store.Save(context.Background(), "a.png", strings.NewReader("x"))
	require.NoError(t, err)
	second, err := store.Save(context.Background(), "a.png", strings.NewReader("y"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	store, err := storage.NewLocalImageStore(t.TempDir(), "UploadedImages")
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "payload.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, storage.ErrUnsupportedImage)
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	store, err := storage.NewLocalImageStore(t.TempDir(), "UploadedImages")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandlerServesSavedImage(t *testing.T) {
	store, err := storage.NewLocalImageStore(t.TempDir(), "UploadedImages")
	require.NoError(t, err)

	p, err := store.Save(context.Background(), "pic.gif", strings.NewReader("GIF89a"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/"+filepath.Base(p), nil)
	rec := httptest.NewRecorder()
	store.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GIF89a", rec.Body.String())
}

func TestSaveUsesURLPrefixNotDirName(t *testing.T) {
	store, err := storage.NewLocalImageStore(t.TempDir(), "/static/images/")
	require.NoError(t, err)

	p, err := store.Save(context.Background(), "a.png", strings.NewReader("x"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, "static/images/"), p)
}

func TestCleanURLPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"UploadedImages":   "UploadedImages",
		"/UploadedImages/": "UploadedImages",
		" media/img ":      "media/img",
	} {
		got, err := storage.CleanURLPrefix(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "/", ".", "..", "./", "/a/../.."} {
		_, err := storage.CleanURLPrefix(in)
		assert.ErrorIs(t, err, storage.ErrInvalidURLPrefix, in)
	}
}

func TestNewLocalImageStoreRejectsRootPrefix(t *testing.T) {
	_, err := storage.NewLocalImageStore(t.TempDir(), "/")
	assert.ErrorIs(t, err, storage.ErrInvalidURLPrefix)
}
