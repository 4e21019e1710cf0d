package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrInvalidURLPrefix = errors.New("invalid image URL prefix")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageStore persists uploaded images and returns the path recorded on the Event.
type ImageStore interface {
	Save(ctx context.Context, filename string, src io.Reader) (string, error)
}

// LocalImageStore writes images into Dir under a generated name.
// Returned paths are "<URLPrefix>/<uuid><ext>"; the router serves Dir under the same prefix.
type LocalImageStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalImageStore(dir, urlPrefix string) (*LocalImageStore, error) {
	prefix, err := CleanURLPrefix(urlPrefix)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &LocalImageStore{Dir: dir, URLPrefix: prefix}, nil
}

// CleanURLPrefix returns prefix without surrounding slashes. "/", "." and
// ".." collapse to the root and are rejected.
func CleanURLPrefix(prefix string) (string, error) {
	cleaned := strings.Trim(path.Clean("/"+strings.TrimSpace(prefix)), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURLPrefix, prefix)
	}
	return cleaned, nil
}

func (s *LocalImageStore) Save(ctx context.Context, filename string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}

	return path.Join(s.URLPrefix, name), nil
}

// Handler serves stored images; mount it with the prefix stripped.
func (s *LocalImageStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.Dir))
}
