package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "source.yaml")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func TestLoad_HTTPFileDefaultsFilename(t *testing.T) {
	p := writeTemp(t, `
source: my-source
items:
  - kind: http_file
    url: "https://example.com/a/Hello%20World.txt"
`)
	cfg, err := Load(p, "")
	require.NoError(t, err)
	assert.Equal(t, "my-source", cfg.Source)
	assert.Equal(t, "my-source", cfg.Subdir)
	assert.Equal(t, defaultOutputDir, cfg.OutputDir)
	require.Len(t, cfg.Items, 1)
	item := cfg.Items[0].(HTTPFileItem)
	assert.Equal(t, "Hello World.txt", item.Filename)
}

func TestLoad_BaseOutputDirOverridesConfig(t *testing.T) {
	p := writeTemp(t, `
source: my-source
output_dir: /configured/dir
items:
  - kind: http_file
    url: "https://example.com/a.txt"
`)
	cfg, err := Load(p, "/overridden")
	require.NoError(t, err)
	assert.Equal(t, "/overridden", cfg.OutputDir)
}

func TestLoad_GDriveFolderDefaults(t *testing.T) {
	p := writeTemp(t, `
source: my-source
subdir: custom-subdir
items:
  - kind: gdrive_folder
    folder_id: abc123
`)
	cfg, err := Load(p, "")
	require.NoError(t, err)
	assert.Equal(t, "custom-subdir", cfg.Subdir)
	item := cfg.Items[0].(GDriveFolderItem)
	assert.Equal(t, "abc123", item.FolderID)
	assert.False(t, item.Recursive)
}

func TestLoad_MissingSource(t *testing.T) {
	p := writeTemp(t, `
items:
  - kind: http_file
    url: "https://example.com/a.txt"
`)
	_, err := Load(p, "")
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLoad_EmptyItems(t *testing.T) {
	p := writeTemp(t, `source: my-source
items: []
`)
	_, err := Load(p, "")
	require.Error(t, err)
}

func TestLoad_UnknownItemKind(t *testing.T) {
	p := writeTemp(t, `
source: my-source
items:
  - kind: ftp_file
    url: "ftp://example.com/a.txt"
`)
	_, err := Load(p, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown item kind")
}

func TestLoad_HTTPFileMissingURL(t *testing.T) {
	p := writeTemp(t, `
source: my-source
items:
  - kind: http_file
`)
	_, err := Load(p, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required 'url'")
}

func TestLoad_GDriveFolderMissingFolderID(t *testing.T) {
	p := writeTemp(t, `
source: my-source
items:
  - kind: gdrive_folder
`)
	_, err := Load(p, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required 'folder_id'")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/does/not/exist.yaml", "")
	require.Error(t, err)
}

func TestLoad_NotAMapping(t *testing.T) {
	p := writeTemp(t, `- just
- a
- list
`)
	_, err := Load(p, "")
	require.Error(t, err)
}

func TestLoad_CannotInferFilename(t *testing.T) {
	p := writeTemp(t, `
source: my-source
items:
  - kind: http_file
    url: "https://example.com/"
`)
	_, err := Load(p, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot infer filename")
}
