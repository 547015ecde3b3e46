// Package creds resolves Google Drive credentials from a service account key
// or an installed-app user-consent flow, adapted from the teacher's
// createOAuthClient/getServiceAccountClient (drive/drive.go) and its
// oauthutil token persistence.
package creds

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev2 "google.golang.org/api/drive/v2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveReadonlyScope is the only scope corpus-fetch ever requests, per
// spec.md §6 ("Drive API requests use read-only scope").
const DriveReadonlyScope = "https://www.googleapis.com/auth/drive.readonly"

// Options configures a Provider. Priority when minting a client is (1)
// ServiceAccountFile, (2) CredentialsFile, matching spec.md §4.2.
type Options struct {
	ServiceAccountFile string
	CredentialsFile    string
	APIKey             string
	// TokenFile overrides the default "<credentials-stem>.token.json"
	// location. Corresponds to GOOGLE_DRIVE_TOKEN_FILE.
	TokenFile string
	Logger    *zap.Logger
}

// Provider mints and caches an authenticated Drive HTTP client. It is safe
// for concurrent use: the underlying oauth2 transport already serializes its
// own token refreshes, and the mint itself is guarded so two goroutines
// racing to build the first client never run the consent flow twice.
type Provider struct {
	opts Options

	mu         sync.Mutex
	httpClient *http.Client
	mintErr    error
	minted     bool
}

// NewProvider constructs a Provider. It logs (but does not reject) a
// configured API key, since API keys are accepted by the CLI surface but
// cannot authenticate Drive media downloads.
func NewProvider(opts Options) *Provider {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIKey != "" {
		opts.Logger.Warn("API key authentication is not supported by the Google Drive media download path; provide OAuth2 credentials or a service account instead")
	}
	return &Provider{opts: opts}
}

// DefaultCredentialsFile mirrors the teacher's fallback: prefer
// credentials.json, then credentials_saved.json, in dir.
func DefaultCredentialsFile(dir string) string {
	for _, name := range []string{"credentials.json", "credentials_saved.json"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, "credentials.json")
}

func (p *Provider) tokenFilePath() string {
	if p.opts.TokenFile != "" {
		return p.opts.TokenFile
	}
	ext := filepath.Ext(p.opts.CredentialsFile)
	stem := strings.TrimSuffix(p.opts.CredentialsFile, ext)
	return stem + ".token.json"
}

// HTTPClient returns the shared, lazily-minted, authenticated HTTP client.
func (p *Provider) HTTPClient(ctx context.Context) (*http.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.minted {
		return p.httpClient, p.mintErr
	}
	client, err := p.mint(ctx)
	if client != nil {
		client.Transport = newTraceTransport(client.Transport, p.opts.Logger)
	}
	p.httpClient, p.mintErr, p.minted = client, err, true
	return client, err
}

func (p *Provider) mint(ctx context.Context) (*http.Client, error) {
	if p.opts.ServiceAccountFile != "" {
		return p.mintServiceAccount(ctx)
	}
	return p.mintUserConsent(ctx)
}

func (p *Provider) mintServiceAccount(ctx context.Context) (*http.Client, error) {
	data, err := os.ReadFile(p.opts.ServiceAccountFile)
	if err != nil {
		return nil, authErr(fmt.Sprintf("service account file not found: %s", p.opts.ServiceAccountFile), err)
	}
	conf, err := google.JWTConfigFromJSON(data, DriveReadonlyScope)
	if err != nil {
		return nil, authErr("parsing service account credentials", err)
	}
	p.opts.Logger.Info("using service account authentication")
	return conf.Client(ctx), nil
}

func (p *Provider) mintUserConsent(ctx context.Context) (*http.Client, error) {
	credPath := p.opts.CredentialsFile
	if credPath == "" {
		return nil, authErr("no OAuth2 credentials file configured", nil)
	}
	data, err := os.ReadFile(credPath)
	if err != nil {
		return nil, authErr(fmt.Sprintf("OAuth2 credentials file not found: %s", credPath), err)
	}
	conf, err := google.ConfigFromJSON(data, DriveReadonlyScope)
	if err != nil {
		return nil, authErr("parsing OAuth2 credentials", err)
	}

	tokenPath := p.tokenFilePath()
	tok, err := loadSavedToken(tokenPath)
	if err != nil {
		p.opts.Logger.Warn("failed to load saved token", zap.String("path", tokenPath), zap.Error(err))
		tok = nil
	}

	if tok == nil || !tok.Valid() {
		if tok != nil && tok.RefreshToken != "" {
			p.opts.Logger.Info("refreshing OAuth2 credentials")
			refreshed, err := conf.TokenSource(ctx, tok).Token()
			if err != nil {
				return nil, authErr("refreshing OAuth2 token", err)
			}
			tok = refreshed
		} else {
			p.opts.Logger.Info("starting OAuth2 consent flow")
			minted, err := runConsentFlow(ctx, conf, os.Stderr)
			if err != nil {
				return nil, authErr("OAuth2 consent flow failed", err)
			}
			tok = minted
		}
		if err := saveToken(tokenPath, tok); err != nil {
			p.opts.Logger.Warn("failed to save OAuth2 token", zap.String("path", tokenPath), zap.Error(err))
		} else {
			p.opts.Logger.Info("saved OAuth2 token", zap.String("path", tokenPath))
		}
	}

	source := newPersistingTokenSource(tokenPath, conf.TokenSource(ctx, tok))
	return oauth2.NewClient(ctx, source), nil
}

// DriveService returns a new Drive v3 client backed by the provider's shared
// HTTP client. Each caller gets its own *drive.Service value — cheap, since
// the transport and its token source are shared — so concurrent fetch
// workers never contend on a single client wrapper.
func (p *Provider) DriveService(ctx context.Context) (*drive.Service, error) {
	client, err := p.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return drive.NewService(ctx, option.WithHTTPClient(client))
}

// DriveServiceV2 returns a Drive v2 client over the same shared HTTP
// client. Drive v2 is kept solely for its Files.Get(id).Download() call,
// which the fetcher uses as a more reliable download path for very large
// files than v3's media alt parameter (see internal/fetch/drive.go).
func (p *Provider) DriveServiceV2(ctx context.Context) (*drivev2.Service, error) {
	client, err := p.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	return drivev2.NewService(ctx, option.WithHTTPClient(client))
}
