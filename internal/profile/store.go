package profile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// ErrProfileUnavailable is returned when no usable profile text exists.
var ErrProfileUnavailable = eris.New("profile: unavailable")

// Store supplies raw profile text.
type Store interface {
	Load(ctx context.Context) (string, error)
}

// FileStore reads the profile from a text file.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns the file content. A missing, empty or non-UTF-8 file is
// reported as ErrProfileUnavailable.
func (s *FileStore) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "profile: load")
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", eris.Wrapf(ErrProfileUnavailable, "profile: %s not found", s.Path)
		}
		return "", eris.Wrapf(err, "profile: read %s", s.Path)
	}
	text := string(data)
	if err := Validate(text); err != nil {
		return "", eris.Wrapf(err, "profile: %s", s.Path)
	}
	return text, nil
}

// Validate rejects profile text that cannot serve as answer context.
func Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return eris.Wrap(ErrProfileUnavailable, "empty profile")
	}
	if !utf8.ValidString(raw) {
		return eris.Wrap(ErrProfileUnavailable, "profile is not valid UTF-8")
	}
	return nil
}

// StaticStore serves fixed profile text.
type StaticStore string

// Load returns the stored text.
func (s StaticStore) Load(_ context.Context) (string, error) {
	if err := Validate(string(s)); err != nil {
		return "", err
	}
	return string(s), nil
}
