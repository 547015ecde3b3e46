package creds

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const consentTimeout = 5 * time.Minute

// runConsentFlow drives the installed-app user-consent flow, preferring a
// localhost callback without auto-opening a browser (headless-safe) and
// falling back to a console copy/paste flow on failure, per spec.md §4.2.
func runConsentFlow(ctx context.Context, conf *oauth2.Config, out *os.File) (*oauth2.Token, error) {
	tok, err := runLocalServerFlow(ctx, conf, out)
	if err == nil {
		return tok, nil
	}
	fmt.Fprintf(out, "Local server auth failed (%v). Falling back to console auth.\n", err)
	return runConsoleFlow(ctx, conf, out)
}

// runLocalServerFlow listens on an ephemeral localhost port, prints the
// authorization URL (never opening a browser itself), and waits for the
// OAuth redirect to deliver the authorization code.
func runLocalServerFlow(ctx context.Context, conf *oauth2.Config, out *os.File) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("binding local callback listener: %w", err)
	}
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/", port)

	origRedirect := conf.RedirectURL
	conf.RedirectURL = redirectURL
	defer func() { conf.RedirectURL = origRedirect }()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			if msg := r.URL.Query().Get("error"); msg != "" {
				errCh <- fmt.Errorf("authorization denied: %s", msg)
			} else {
				errCh <- fmt.Errorf("callback missing code parameter")
			}
			fmt.Fprintln(w, "Authorization failed, you may close this tab.")
			return
		}
		fmt.Fprintln(w, "Authorization complete, you may close this tab.")
		codeCh <- code
	})
	server := &http.Server{Handler: mux}
	go func() { _ = server.Serve(listener) }()
	defer server.Close()

	authURL := conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open this URL in your browser to authorize access:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		return conf.Exchange(ctx, code)
	case err := <-errCh:
		return nil, err
	case <-time.After(consentTimeout):
		return nil, fmt.Errorf("timed out waiting for authorization callback")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runConsoleFlow prints the out-of-band authorization URL and reads the
// pasted code from stdin, matching the teacher's run_console fallback.
func runConsoleFlow(ctx context.Context, conf *oauth2.Config, out *os.File) (*oauth2.Token, error) {
	origRedirect := conf.RedirectURL
	conf.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
	defer func() { conf.RedirectURL = origRedirect }()

	authURL := conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Go to the following link in your browser, then type the authorization code:\n%s\n", authURL)
	fmt.Fprint(out, "Enter authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return nil, fmt.Errorf("empty authorization code")
	}
	return conf.Exchange(ctx, code)
}
