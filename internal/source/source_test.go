package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadList(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "sources.txt")
	writeFile(t, list, "  a.jpg  \n\n\t\nhttps://example.com/b.png\r\nc.png")

	got, err := ReadList(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "https://example.com/b.png", "c.png"}, got)
}

func TestReadListEmptyFile(t *testing.T) {
	list := filepath.Join(t.TempDir(), "empty.txt")
	writeFile(t, list, "\n\n")

	got, err := ReadList(list)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadListMissingIsFatal(t *testing.T) {
	_, err := ReadList(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBatchFatal)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadList("  ")
	assert.ErrorIs(t, err, common.ErrBatchFatal)
}

func TestListDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.PNG"), "x")
	writeFile(t, filepath.Join(root, "a.jpg"), "x")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "nested", "c.tiff"), "x")
	writeFile(t, filepath.Join(root, ".hidden.png"), "x")
	writeFile(t, filepath.Join(root, ".cache", "d.jpg"), "x")

	t.Run("skip hidden", func(t *testing.T) {
		got, stats, err := ListDirectory(root, true)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.jpg"),
			filepath.Join(root, "b.PNG"),
			filepath.Join(root, "nested", "c.tiff"),
		}, got)
		assert.Equal(t, uint32(3), stats.Matched)
		assert.Equal(t, uint32(4), stats.Scanned)
		assert.Equal(t, uint32(1), stats.Skipped)
	})

	t.Run("include hidden", func(t *testing.T) {
		got, stats, err := ListDirectory(root, false)
		require.NoError(t, err)
		assert.Len(t, got, 5)
		assert.Equal(t, uint32(5), stats.Matched)
	})
}

func TestListDirectoryMissing(t *testing.T) {
	_, _, err := ListDirectory(filepath.Join(t.TempDir(), "gone"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBatchFatal)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("http://example.com/a.png"))
	assert.True(t, IsURL("HTTPS://example.com/a.png"))
	assert.False(t, IsURL("/tmp/a.png"))
	assert.False(t, IsURL("a.png"))
	assert.False(t, IsURL("ftp://example.com/a.png"))
	assert.False(t, IsURL("http://"))
	assert.False(t, IsURL(`C:\scans\a.png`))
}

func TestLoadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	writeFile(t, path, "raw-bytes")

	l := NewLoader(LoaderOptions{}, nil)
	got, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-bytes"), got.Data)
	assert.Equal(t, path, got.Source)
	assert.Equal(t, 0, got.Orientation)
}

func TestLoadMissingLocalFile(t *testing.T) {
	l := NewLoader(LoaderOptions{}, nil)
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSourceFetch)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write([]byte("png-bytes"))
		case "/moved.png":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(LoaderOptions{Timeout: 5 * time.Second}, nil)

	got, err := l.Load(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), got.Data)
	assert.Equal(t, srv.URL+"/ok.png", got.Source)

	_, err = l.Load(context.Background(), srv.URL+"/missing.png")
	assert.ErrorIs(t, err, common.ErrSourceFetch)
	assert.Contains(t, err.Error(), "404")

	_, err = l.Load(context.Background(), srv.URL+"/moved.png")
	assert.ErrorIs(t, err, common.ErrSourceFetch, "only 200 counts as success")
}

func TestLoadURLTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/a.png"
	srv.Close()

	l := NewLoader(LoaderOptions{Timeout: time.Second}, nil)
	_, err := l.Load(context.Background(), url)
	assert.ErrorIs(t, err, common.ErrSourceFetch)
}

func TestLoadURLDoesNotRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewLoader(LoaderOptions{}, nil).Load(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, common.ErrSourceFetch)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoadURLOptInRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("third time"))
	}))
	defer srv.Close()

	got, err := NewLoader(LoaderOptions{Retries: 3}, nil).Load(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("third time"), got.Data)
	assert.Equal(t, int32(3), hits.Load())
}

func TestLoadURLCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(LoaderOptions{}, nil).Load(ctx, srv.URL+"/a.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSourceFetch))
}
