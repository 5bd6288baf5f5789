// Package media stores uploaded post images on disk.
package media

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxUpload bounds an image upload when no limit is configured.
const DefaultMaxUpload = 5 << 20

var (
	ErrNotImage = errors.New("upload a valid image")
	ErrTooLarge = errors.New("image file is too large")
)

var allowedTypes = []string{"image/gif", "image/png", "image/jpeg", "image/webp"}

// Upload is a file received from a form.
type Upload struct {
	Filename string
	Data     []byte
}

// Inspect sniffs data and returns the detected MIME type when it is an
// accepted image no larger than maxBytes.
func Inspect(data []byte, maxBytes int64) (*mimetype.MIME, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUpload
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNotImage
	}
	mime := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if mime.Is(allowed) {
			return mime, nil
		}
	}
	return nil, ErrNotImage
}

// Store keeps images below dir/posts.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the posts directory under dir.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, errors.New("media directory is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUpload
	}
	if err := os.MkdirAll(filepath.Join(dir, "posts"), 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir is the root served under /media/.
func (s *Store) Dir() string { return s.dir }

// MaxBytes is the upload size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save writes upload and returns its reference relative to the media root,
// e.g. "posts/2f1c....png".
func (s *Store) Save(upload *Upload) (string, error) {
	if upload == nil {
		return "", ErrNotImage
	}
	mime, err := Inspect(upload.Data, s.maxBytes)
	if err != nil {
		return "", err
	}
	name := uuid.NewString() + mime.Extension()
	ref := path.Join("posts", name)
	if err := os.WriteFile(filepath.Join(s.dir, "posts", name), upload.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return ref, nil
}

// Remove deletes a stored image. Unknown references are ignored.
func (s *Store) Remove(ref string) error {
	if ref == "" || strings.Contains(ref, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(ref)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
