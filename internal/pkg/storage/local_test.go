package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_UploadDownload(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := s.Upload(ctx, strings.NewReader("png-bytes"), "run-1/failure.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "run-1/failure.png", key)

	rc, err := s.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalStorage_TraversalStaysInside(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := s.Upload(ctx, strings.NewReader("x"), "../../etc/passwd", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", key)
}

func TestLocalStorage_Missing(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Download(ctx, "nope.html")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	keys, err := s.List(ctx, "no-run")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
