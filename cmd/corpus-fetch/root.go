package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusacq/corpus-fetch/internal/apierror"
	"github.com/corpusacq/corpus-fetch/internal/config"
	"github.com/corpusacq/corpus-fetch/internal/creds"
	"github.com/corpusacq/corpus-fetch/internal/logging"
	"github.com/corpusacq/corpus-fetch/internal/orchestrator"
	"github.com/corpusacq/corpus-fetch/internal/pacer"
	"github.com/corpusacq/corpus-fetch/internal/progress"
	"github.com/corpusacq/corpus-fetch/internal/version"
)

var opts struct {
	configDir          string
	outputDir          string
	overwrite          bool
	logLevel           string
	serviceAccountFile string
	credentialsFile    string
	apiKey             string
	maxDriveWorkers    int
	maxHTTPWorkers     int
	manifestOnly       bool
	verifyOnly         bool
	skipVerify         bool
	progress           bool
	all                bool
}

// rootCmd is corpus-fetch's single command, per spec.md §6.
var rootCmd = &cobra.Command{
	Use:   "corpus-fetch [source]",
	Short: "Acquire a declared corpus of HTTP and Google Drive sources",
	Long: `corpus-fetch materializes a documented corpus of HTTP and Google Drive
sources onto the local filesystem and produces a verifiable manifest for
every Drive folder it walks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&opts.configDir, "config-dir", "config", "directory holding per-source YAML configs")
	flags.StringVar(&opts.outputDir, "output-dir", "", "override each config's output_dir")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "re-download files that already exist")
	flags.StringVar(&opts.logLevel, "log-level", logging.Info, "DEBUG, INFO, WARNING, or ERROR")
	flags.StringVar(&opts.serviceAccountFile, "service-account-file", "", "service account JSON key file")
	flags.StringVar(&opts.credentialsFile, "credentials-file", "", "OAuth2 installed-app client secrets file")
	flags.StringVar(&opts.apiKey, "api-key", "", "Google API key (rejected for Drive media downloads)")
	flags.IntVar(&opts.maxDriveWorkers, "max-drive-workers", 4, "bounded pool size for Drive downloads")
	flags.IntVar(&opts.maxHTTPWorkers, "max-http-workers", 8, "bounded pool size for HTTP downloads")
	flags.BoolVar(&opts.manifestOnly, "manifest-only", false, "enumerate and write the manifest, download nothing")
	flags.BoolVar(&opts.verifyOnly, "verify-only", false, "enumerate and verify an existing tree, download nothing")
	flags.BoolVar(&opts.skipVerify, "skip-verify", false, "disable post-download size/MD5 verification")
	flags.BoolVar(&opts.progress, "progress", true, "render a terminal status line when attached to a TTY")
	flags.BoolVar(&opts.all, "all", false, "process every config file in --config-dir")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print corpus-fetch's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), version.Info())
		return nil
	},
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(opts.logLevel)
	defer log.Sync() //nolint:errcheck

	sourcePaths, err := resolveSourcePaths(args)
	if err != nil {
		return err
	}

	provider := creds.NewProvider(creds.Options{
		ServiceAccountFile: firstNonEmpty(opts.serviceAccountFile, os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"), os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		CredentialsFile:    resolveCredentialsFile(),
		APIKey:             firstNonEmpty(opts.apiKey, os.Getenv("GOOGLE_API_KEY")),
		TokenFile:          os.Getenv("GOOGLE_DRIVE_TOKEN_FILE"),
		Logger:             log,
	})
	sharedPacer := pacer.New(pacer.RetryWith(func(err error) (bool, error) {
		return apierror.ShouldRetry(err), err
	}))
	reporter := progress.NewLogReporter(log, opts.progress)

	var failed []string
	for _, sourcePath := range sourcePaths {
		if err := runSource(ctx, sourcePath, provider, sharedPacer, reporter, log); err != nil {
			log.Error("source failed", zap.String("config", sourcePath), zap.Error(err))
			failed = append(failed, sourcePath)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d source(s) failed: %s", len(failed), len(sourcePaths), strings.Join(failed, ", "))
	}
	return nil
}

func runSource(ctx context.Context, sourcePath string, provider *creds.Provider, p *pacer.Pacer, reporter progress.Reporter, log *zap.Logger) error {
	cfg, err := config.Load(sourcePath, opts.outputDir)
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Options{
		Config:          cfg,
		CredsProvider:   provider,
		Pacer:           p,
		MaxHTTPWorkers:  opts.maxHTTPWorkers,
		MaxDriveWorkers: opts.maxDriveWorkers,
		SkipVerify:      opts.skipVerify,
		ManifestOnly:    opts.manifestOnly,
		VerifyOnly:      opts.verifyOnly,
		Progress:        reporter,
		Logger:          log,
	})
	return orch.DownloadAll(ctx, opts.overwrite)
}

// resolveSourcePaths implements spec.md §6's positional-source-or---all
// selection.
func resolveSourcePaths(args []string) ([]string, error) {
	if opts.all {
		matches, err := filepath.Glob(filepath.Join(opts.configDir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("listing configs in %s: %w", opts.configDir, err)
		}
		sort.Strings(matches)
		if len(matches) == 0 {
			return nil, fmt.Errorf("no config files found in %s", opts.configDir)
		}
		return matches, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("specify a source name or pass --all")
	}
	return []string{filepath.Join(opts.configDir, args[0]+".yaml")}, nil
}

// resolveCredentialsFile applies spec.md §9's documented priority: explicit
// flag, then environment variable, then the credentials.json/
// credentials_saved.json fallback in the current directory.
func resolveCredentialsFile() string {
	if v := firstNonEmpty(opts.credentialsFile, os.Getenv("GOOGLE_CREDENTIALS_FILE")); v != "" {
		return v
	}
	if opts.serviceAccountFile != "" || os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") != "" || os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		return ""
	}
	return creds.DefaultCredentialsFile(".")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
