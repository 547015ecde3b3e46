package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func TestFile_MissingPath(t *testing.T) {
	ok, err := File(filepath.Join(t.TempDir(), "missing"), nil, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFile_NoExpectationsAccepted(t *testing.T) {
	p := writeFile(t, "hello world")
	ok, err := File(p, nil, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFile_SizeMismatch(t *testing.T) {
	p := writeFile(t, "hello world")
	var wrong int64 = 3
	ok, err := File(p, &wrong, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFile_SizeMatchNoMD5(t *testing.T) {
	p := writeFile(t, "hello world")
	size := int64(len("hello world"))
	ok, err := File(p, &size, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFile_MD5Match(t *testing.T) {
	p := writeFile(t, "hello world")
	sum, err := MD5(p)
	require.NoError(t, err)
	ok, err := File(p, nil, sum)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFile_MD5Mismatch(t *testing.T) {
	p := writeFile(t, "hello world")
	ok, err := File(p, nil, "0000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMD5_KnownVector(t *testing.T) {
	p := writeFile(t, "")
	sum, err := MD5(p)
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", sum)
}
