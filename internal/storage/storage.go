package storage

import (
	"context"
	"io"
)

type Uploader interface {
	// Upload stores an object and returns the public reference (path or URL)
	// callers hand back to clients.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}
