package fetch

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusacq/corpus-fetch/internal/verify"
)

type fakeDownloader struct {
	bodies map[string]string
	errs   map[string]error
	calls  []string
	sizes  []int64
}

func (f *fakeDownloader) Download(ctx context.Context, fileID string, size int64) (io.ReadCloser, error) {
	f.calls = append(f.calls, fileID)
	f.sizes = append(f.sizes, size)
	if err, ok := f.errs[fileID]; ok {
		return nil, err
	}
	return io.NopCloser(bytes.NewBufferString(f.bodies[fileID])), nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestDriveFetcher_DownloadsAndVerifies(t *testing.T) {
	content := "hello drive"
	dl := &fakeDownloader{bodies: map[string]string{"f1": content}}
	f := NewDriveFetcher(dl, nil)

	dest := filepath.Join(t.TempDir(), "x.txt")
	sum, err := md5OfString(content)
	require.NoError(t, err)

	res := f.Fetch(context.Background(), "f1", dest, int64Ptr(int64(len(content))), sum, false)
	require.Equal(t, StateVerified, res.State)
	require.NoError(t, res.Err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	_, err = os.Stat(dest + ".part.f1")
	assert.True(t, os.IsNotExist(err))
}

func TestDriveFetcher_VerificationFailureDeletesDest(t *testing.T) {
	dl := &fakeDownloader{bodies: map[string]string{"f1": "corrupted content"}}
	f := NewDriveFetcher(dl, nil)

	dest := filepath.Join(t.TempDir(), "x.txt")
	res := f.Fetch(context.Background(), "f1", dest, int64Ptr(999), "deadbeef", false)

	assert.Equal(t, StateFailed, res.State)
	require.Error(t, res.Err)

	var verr *verify.Error
	assert.ErrorAs(t, res.Err, &verr)

	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestDriveFetcher_SkipVerifySucceedsRegardlessOfMismatch(t *testing.T) {
	dl := &fakeDownloader{bodies: map[string]string{"f1": "whatever"}}
	f := NewDriveFetcher(dl, nil)

	dest := filepath.Join(t.TempDir(), "x.txt")
	res := f.Fetch(context.Background(), "f1", dest, int64Ptr(1), "wrong", true)
	assert.Equal(t, StateVerified, res.State)
}

func TestDriveFetcher_DownloadErrorCleansUpTemp(t *testing.T) {
	dl := &fakeDownloader{errs: map[string]error{"f1": assert.AnError}}
	f := NewDriveFetcher(dl, nil)

	dest := filepath.Join(t.TempDir(), "x.txt")
	res := f.Fetch(context.Background(), "f1", dest, nil, "", false)
	assert.Equal(t, StateFailed, res.State)

	_, err := os.Stat(dest + ".part.f1")
	assert.True(t, os.IsNotExist(err))
}

func TestDriveFetcher_TempNameIsKeyedByFileID(t *testing.T) {
	dl := &fakeDownloader{bodies: map[string]string{
		"f1": "content one",
		"f2": "content two",
	}}
	f := NewDriveFetcher(dl, nil)
	dest := filepath.Join(t.TempDir(), "shared.txt")

	res1 := f.Fetch(context.Background(), "f1", dest, nil, "", true)
	require.Equal(t, StateVerified, res1.State)
	res2 := f.Fetch(context.Background(), "f2", dest, nil, "", true)
	require.Equal(t, StateVerified, res2.State)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content two", string(data))
}

func TestDriveFetcher_PassesExpectedSizeToDownloader(t *testing.T) {
	dl := &fakeDownloader{bodies: map[string]string{"f1": "x"}}
	f := NewDriveFetcher(dl, nil)
	dest := filepath.Join(t.TempDir(), "x.txt")

	_ = f.Fetch(context.Background(), "f1", dest, int64Ptr(12345), "", true)
	require.Len(t, dl.sizes, 1)
	assert.Equal(t, int64(12345), dl.sizes[0])
}

func TestDriveFetcher_ChunkCallbackReportsCumulativeBytes(t *testing.T) {
	content := "abcdefgh"
	dl := &fakeDownloader{bodies: map[string]string{"f1": content}}
	var reported []int64
	f := NewDriveFetcher(dl, func(fileID string, n int64) {
		reported = append(reported, n)
	})

	dest := filepath.Join(t.TempDir(), "x.txt")
	res := f.Fetch(context.Background(), "f1", dest, nil, "", true)
	require.Equal(t, StateVerified, res.State)
	require.NotEmpty(t, reported)
	assert.Equal(t, int64(len(content)), reported[len(reported)-1])
}

func md5OfString(s string) (string, error) {
	dir, err := os.MkdirTemp("", "md5test")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)
	p := filepath.Join(dir, "tmp")
	if err := os.WriteFile(p, []byte(s), 0o644); err != nil {
		return "", err
	}
	return verify.MD5(p)
}
