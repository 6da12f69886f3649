package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes audio artifacts to a directory that the HTTP server also
// serves statically under publicPrefix.
type LocalStore struct {
	dir          string
	publicPrefix string
}

func NewLocalStore(dir, publicPrefix string) (*LocalStore, error) {
	if dir == "" {
		dir = "audio_responses"
	}
	if publicPrefix == "" {
		publicPrefix = "/static"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

func (s *LocalStore) Upload(ctx context.Context, objectName string, _ string, r io.Reader) (string, error) {
	// Base strips any path components a caller might sneak into the name.
	name := filepath.Base(objectName)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	return s.publicPrefix + "/" + name, nil
}
