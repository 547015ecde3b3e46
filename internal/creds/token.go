package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// loadSavedToken reads a previously persisted OAuth2 token, mirroring the
// teacher's TokenManager.LoadToken (lib/oauthutil/token_manager.go) minus
// its optional encryption-at-rest support, which this repo has no use for
// since tokens never leave the host that minted them.
func loadSavedToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token file %s: %w", path, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	return &tok, nil
}

// saveToken persists tok to path, creating the parent directory if needed.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshaling token: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// persistingTokenSource wraps a TokenSource and writes every freshly minted
// token back to disk, adapted from the teacher's
// persistentTokenSourceWithManager.
type persistingTokenSource struct {
	wrapped  oauth2.TokenSource
	path     string
	lastTok  string
}

func newPersistingTokenSource(path string, wrapped oauth2.TokenSource) oauth2.TokenSource {
	return &persistingTokenSource{wrapped: wrapped, path: path}
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.wrapped.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.lastTok {
		if err := saveToken(s.path, tok); err != nil {
			// Non-fatal: the in-memory token is still usable this run.
			return tok, nil
		}
		s.lastTok = tok.AccessToken
	}
	return tok, nil
}
