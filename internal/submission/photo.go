package submission

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Photo storage modes.
const (
	PhotoModeFile   = "file"
	PhotoModeInline = "inline"
)

// UploadsPrefix is the URL path photo files are served under.
const UploadsPrefix = "/uploads/"

const maxFilePartLen = 40

var (
	// ErrForbiddenPath rejects photo names that try to leave the uploads dir.
	ErrForbiddenPath = errors.New("forbidden photo path")
	// ErrPhotoNotFound is returned for names the store does not hold.
	ErrPhotoNotFound = errors.New("photo not found")
)

// PhotoRef is where a stored photo lives. Exactly one of Path and DataURL is set.
type PhotoRef struct {
	Path     string
	DataURL  string
	MimeType string
}

// PhotoStore persists submission photos.
type PhotoStore interface {
	Store(ctx context.Context, photo Photo, teamID, questionRef string, at time.Time) (PhotoRef, error)
	// Remove drops one stored photo; used to roll back a failed append.
	Remove(ctx context.Context, ref PhotoRef) error
	RemoveAll(ctx context.Context) error
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9_-]`)

// sanitizeFilePart keeps a value safe for use inside a file name.
func sanitizeFilePart(v string) string {
	s := unsafeFileChars.ReplaceAllString(strings.ToLower(v), "")
	if len(s) > maxFilePartLen {
		s = s[:maxFilePartLen]
	}
	return s
}

// PhotoFileName builds <unixMillis>-team<team>-q<question><ext>.
func PhotoFileName(at time.Time, teamID, questionRef, ext string) string {
	return fmt.Sprintf("%d-team%s-q%s%s", at.UnixMilli(), sanitizeFilePart(teamID), sanitizeFilePart(questionRef), ext)
}

// FilePhotoStore writes photos into a directory served at /uploads/.
type FilePhotoStore struct {
	dir string
}

var _ PhotoStore = (*FilePhotoStore)(nil)

func NewFilePhotoStore(dir string) (*FilePhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &FilePhotoStore{dir: dir}, nil
}

func (s *FilePhotoStore) Dir() string { return s.dir }

func (s *FilePhotoStore) Store(_ context.Context, photo Photo, teamID, questionRef string, at time.Time) (PhotoRef, error) {
	ext := ResolveExtension(photo.MimeType, photo.Filename)
	name := PhotoFileName(at, teamID, questionRef, ext)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(s.dir, name)); errors.Is(err, fs.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s-%d%s", base, n, ext)
	}

	if err := writeFileAtomic(filepath.Join(s.dir, name), photo.Data, 0o644); err != nil {
		return PhotoRef{}, storageErr("write photo", err)
	}
	return PhotoRef{Path: UploadsPrefix + name, MimeType: photo.MimeType}, nil
}

func (s *FilePhotoStore) Remove(_ context.Context, ref PhotoRef) error {
	if ref.Path == "" {
		return nil
	}
	full, err := s.resolve(strings.TrimPrefix(ref.Path, UploadsPrefix))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageErr("remove photo", err)
	}
	return nil
}

// RemoveAll deletes every file in the uploads dir. A missing dir is not an error.
func (s *FilePhotoStore) RemoveAll(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return storageErr("list uploads", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return storageErr("remove upload", err)
		}
	}
	return nil
}

// Open returns the file for a name under /uploads/. Names that are absolute or
// climb out of the directory get ErrForbiddenPath.
func (s *FilePhotoStore) Open(name string) (*os.File, fs.FileInfo, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return nil, nil, ErrPhotoNotFound
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, nil, ErrPhotoNotFound
	}
	return f, info, nil
}

func (s *FilePhotoStore) resolve(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) {
		return "", ErrForbiddenPath
	}
	cleaned := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrForbiddenPath
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}

// InlinePhotoStore embeds photos in the record as data URLs.
type InlinePhotoStore struct{}

var _ PhotoStore = InlinePhotoStore{}

func (InlinePhotoStore) Store(_ context.Context, photo Photo, _, _ string, _ time.Time) (PhotoRef, error) {
	return PhotoRef{DataURL: EncodeDataURL(photo.MimeType, photo.Data), MimeType: photo.MimeType}, nil
}

func (InlinePhotoStore) Remove(context.Context, PhotoRef) error { return nil }

func (InlinePhotoStore) RemoveAll(context.Context) error { return nil }
