package creds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"
)

func TestDefaultCredentialsFile_PrefersCredentialsJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials_saved.json"), []byte("{}"), 0o644))
	assert.Equal(t, filepath.Join(dir, "credentials.json"), DefaultCredentialsFile(dir))
}

func TestDefaultCredentialsFile_FallsBackToSaved(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials_saved.json"), []byte("{}"), 0o644))
	assert.Equal(t, filepath.Join(dir, "credentials_saved.json"), DefaultCredentialsFile(dir))
}

func TestDefaultCredentialsFile_DefaultsWhenNeitherExists(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "credentials.json"), DefaultCredentialsFile(dir))
}

func TestTokenFilePath_DerivesFromCredentialsStem(t *testing.T) {
	p := &Provider{opts: Options{CredentialsFile: "/cfg/credentials.json"}}
	assert.Equal(t, "/cfg/credentials.token.json", p.tokenFilePath())
}

func TestTokenFilePath_RespectsOverride(t *testing.T) {
	p := &Provider{opts: Options{CredentialsFile: "/cfg/credentials.json", TokenFile: "/other/token.json"}}
	assert.Equal(t, "/other/token.json", p.tokenFilePath())
}

func TestNewProvider_WarnsOnAPIKey(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	NewProvider(Options{APIKey: "some-key", Logger: zap.New(core)})
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "API key")
}

func TestSaveAndLoadToken_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{AccessToken: "abc123", RefreshToken: "refresh-xyz"}
	require.NoError(t, saveToken(path, tok))
	loaded, err := loadSavedToken(path)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, loaded.AccessToken)
}

func TestLoadSavedToken_MissingFileReturnsNil(t *testing.T) {
	tok, err := loadSavedToken(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Nil(t, tok)
}
