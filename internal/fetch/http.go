package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/corpusacq/corpus-fetch/internal/apierror"
)

// httpBlockSize is the write block size for HTTP downloads, per spec.md
// §4.5 ("8 KiB blocks").
const httpBlockSize = 8 * 1024

// DefaultHTTPTimeout is the minimum read/connect timeout spec.md §5
// requires ("≥60 s").
const DefaultHTTPTimeout = 60 * time.Second

// HTTPFetcher downloads plain URLs. Per spec.md §4.5, HTTP items carry no
// size/MD5 expectations and are never verified. Each worker goroutine should
// own its own HTTPFetcher (and thus its own *http.Client), matching the
// "per-thread client" guidance of spec.md §4.2/§5.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher with the given timeout applied to
// the whole request (connect through body read).
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads url to dest. If dest already exists and overwrite is
// false, Fetch no-ops and reports StateSkipped.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dest string, overwrite bool) Result {
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return skipped(dest)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return failed(dest, fmt.Errorf("creating destination directory: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed(dest, fmt.Errorf("building request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return failed(dest, apierror.Translate("http GET "+url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(dest, apierror.Translate("http GET "+url, &httpStatusError{URL: url, Status: resp.StatusCode}))
	}

	partPath := dest + ".part"
	part, err := os.OpenFile(partPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return failed(dest, fmt.Errorf("creating temp file %s: %w", partPath, err))
	}

	buf := make([]byte, httpBlockSize)
	_, copyErr := io.CopyBuffer(part, resp.Body, buf)
	closeErr := part.Close()

	if copyErr != nil {
		os.Remove(partPath)
		return failed(dest, apierror.Translate("streaming response body", copyErr))
	}
	if closeErr != nil {
		os.Remove(partPath)
		return failed(dest, fmt.Errorf("closing temp file %s: %w", partPath, closeErr))
	}

	if err := os.Rename(partPath, dest); err != nil {
		os.Remove(partPath)
		return failed(dest, fmt.Errorf("renaming %s to %s: %w", partPath, dest, err))
	}

	return verified(dest)
}

// httpStatusError reports a non-2xx HTTP response. It is deliberately
// minimal: apierror.Translate classifies it further (e.g. 429/5xx as
// retryable) without needing a typed *googleapi.Error.
type httpStatusError struct {
	URL    string
	Status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// StatusCode lets apierror.ShouldRetry classify this error the same way it
// classifies googleapi.Error by HTTP status.
func (e *httpStatusError) StatusCode() int { return e.Status }
