package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("file not found")

// FileStorage keeps run artifacts such as failure screenshots and page dumps.
type FileStorage interface {
	// Upload writes file under path and returns the cleaned key
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Download opens a stored file
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// List returns the keys stored under dir
	List(ctx context.Context, dir string) ([]string, error)
}
