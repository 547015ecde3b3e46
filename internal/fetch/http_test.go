package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_DownloadsAndRenames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.txt")
	f := NewHTTPFetcher(5 * time.Second)
	res := f.Fetch(context.Background(), srv.URL, dest, false)

	require.Equal(t, StateVerified, res.State)
	require.NoError(t, res.Err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestHTTPFetcher_SkipsWhenDestExistsAndNotOverwrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not have been hit")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)
	res := f.Fetch(context.Background(), srv.URL, dest, false)
	assert.Equal(t, StateSkipped, res.State)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data))
}

func TestHTTPFetcher_OverwriteRefetches(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5 * time.Second)
	res := f.Fetch(context.Background(), srv.URL, dest, true)
	require.Equal(t, StateVerified, res.State)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestHTTPFetcher_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.txt")
	f := NewHTTPFetcher(5 * time.Second)
	res := f.Fetch(context.Background(), srv.URL, dest, false)

	assert.Equal(t, StateFailed, res.State)
	require.Error(t, res.Err)

	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestHTTPFetcher_CreatesParentDirectories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nested"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a", "b", "out.txt")
	f := NewHTTPFetcher(5 * time.Second)
	res := f.Fetch(context.Background(), srv.URL, dest, false)
	require.Equal(t, StateVerified, res.State)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "nested", string(data))
}
