package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/storage"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/validator"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is one stored failure snapshot.
type Artifact struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

type FileService interface {
	// ListArtifacts returns the snapshots stored for runID
	ListArtifacts(ctx context.Context, runID string) ([]Artifact, error)

	// OpenArtifact streams one snapshot; the caller closes the reader
	OpenArtifact(ctx context.Context, runID string, name string) (io.ReadCloser, Artifact, error)
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

// NewFileService serves run artifacts. A nil storage means artifacts are disabled.
func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

func (s *fileServiceImpl) ListArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	artifacts := make([]Artifact, 0)
	if s.storage == nil || !validator.IsValidUUID(runID) {
		return artifacts, nil
	}

	keys, err := s.storage.List(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	for _, key := range keys {
		name := path.Base(key)
		if contentType, ok := contentTypeFor(name); ok {
			artifacts = append(artifacts, Artifact{Name: name, ContentType: contentType})
		}
	}
	return artifacts, nil
}

func (s *fileServiceImpl) OpenArtifact(ctx context.Context, runID string, name string) (io.ReadCloser, Artifact, error) {
	if s.storage == nil || !validator.IsValidUUID(runID) || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return nil, Artifact{}, ErrArtifactNotFound
	}
	contentType, ok := contentTypeFor(name)
	if !ok {
		return nil, Artifact{}, ErrArtifactNotFound
	}

	rc, err := s.storage.Download(ctx, path.Join(runID, name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Artifact{}, ErrArtifactNotFound
		}
		return nil, Artifact{}, fmt.Errorf("open artifact: %w", err)
	}
	return rc, Artifact{Name: name, ContentType: contentType}, nil
}

func contentTypeFor(name string) (string, bool) {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png", true
	case ".html":
		return "text/html; charset=utf-8", true
	default:
		return "", false
	}
}
