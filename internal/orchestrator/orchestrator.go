// Package orchestrator implements C7: the central coordinator that walks
// Drive folders, fans work out to the HTTP and Drive fetchers, applies
// on-the-fly dedupe, and persists the manifest. Adapted from the original
// source's DatasetDownloader.download_all and the teacher's fs/sync.go
// bounded-concurrency pattern.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corpusacq/corpus-fetch/internal/config"
	"github.com/corpusacq/corpus-fetch/internal/creds"
	"github.com/corpusacq/corpus-fetch/internal/drivewalk"
	"github.com/corpusacq/corpus-fetch/internal/fetch"
	"github.com/corpusacq/corpus-fetch/internal/pacer"
	"github.com/corpusacq/corpus-fetch/internal/progress"
	"github.com/corpusacq/corpus-fetch/internal/verify"
)

const (
	defaultMaxHTTPWorkers  = 8
	defaultMaxDriveWorkers = 4
)

// ListerFactory builds a drivewalk.Lister for one goroutine's use. The
// default, production factory wraps CredsProvider.DriveService + Pacer;
// tests supply a factory that returns an in-memory fake, per the REDESIGN
// FLAGS' "accept interfaces" guidance.
type ListerFactory func(ctx context.Context) (drivewalk.Lister, error)

// DownloaderFactory builds a fetch.MediaDownloader for one download
// worker's use.
type DownloaderFactory func(ctx context.Context) (fetch.MediaDownloader, error)

// Options configures an Orchestrator. CredsProvider and Pacer may be nil
// when a source has no Drive-folder items, or when ListerFactory and
// DownloaderFactory are supplied directly (as tests do).
type Options struct {
	Config          *config.SourceConfig
	CredsProvider   *creds.Provider
	Pacer           *pacer.Pacer
	ListerFactory   ListerFactory
	Downloader      DownloaderFactory
	MaxHTTPWorkers  int
	MaxDriveWorkers int
	HTTPTimeout     time.Duration
	SkipVerify      bool
	ManifestOnly    bool
	VerifyOnly      bool
	Progress        progress.Reporter
	Logger          *zap.Logger
}

// Orchestrator coordinates one source's acquisition run.
type Orchestrator struct {
	opts Options
}

// New builds an Orchestrator, applying spec.md §6's documented defaults for
// worker-pool sizes.
func New(opts Options) *Orchestrator {
	if opts.MaxHTTPWorkers <= 0 {
		opts.MaxHTTPWorkers = defaultMaxHTTPWorkers
	}
	if opts.MaxDriveWorkers <= 0 {
		opts.MaxDriveWorkers = defaultMaxDriveWorkers
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = fetch.DefaultHTTPTimeout
	}
	if opts.Progress == nil {
		opts.Progress = progress.NoopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ListerFactory == nil && opts.CredsProvider != nil {
		opts.ListerFactory = func(ctx context.Context) (drivewalk.Lister, error) {
			svc, err := opts.CredsProvider.DriveService(ctx)
			if err != nil {
				return nil, err
			}
			return drivewalk.NewLister(svc, opts.Pacer), nil
		}
	}
	if opts.Downloader == nil && opts.CredsProvider != nil {
		opts.Downloader = func(ctx context.Context) (fetch.MediaDownloader, error) {
			svc, err := opts.CredsProvider.DriveService(ctx)
			if err != nil {
				return nil, err
			}
			v2Svc, err := opts.CredsProvider.DriveServiceV2(ctx)
			if err != nil {
				// Non-fatal: v2 only ever serves as the large-file path: if
				// it fails to build, every file just falls through to v3.
				opts.Logger.Warn("drive v2 service unavailable, large files will use the v3 download path", zap.Error(err))
				v2Svc = nil
			}
			return fetch.NewMediaDownloader(svc, v2Svc, opts.Pacer), nil
		}
	}
	return &Orchestrator{opts: opts}
}

// DownloadAll implements spec.md §4.7's central operation.
func (o *Orchestrator) DownloadAll(ctx context.Context, overwrite bool) error {
	cfg := o.opts.Config
	targetRoot := cfg.TargetRoot()
	if err := os.MkdirAll(targetRoot, 0o755); err != nil {
		return fmt.Errorf("creating target root %s: %w", targetRoot, err)
	}

	var httpItems []config.HTTPFileItem
	var driveItems []config.GDriveFolderItem
	for _, item := range cfg.Items {
		switch v := item.(type) {
		case config.HTTPFileItem:
			httpItems = append(httpItems, v)
		case config.GDriveFolderItem:
			driveItems = append(driveItems, v)
		}
	}

	runErrs := &RunErrors{}
	runCounts := &RunCounts{}

	if !o.opts.ManifestOnly && !o.opts.VerifyOnly {
		o.runHTTPGroup(ctx, httpItems, targetRoot, overwrite, runErrs, runCounts)
	}

	var manifest []ManifestEntry
	var conflicts []string
	var skippedDups int

	for _, item := range driveItems {
		entries, itemConflicts, itemSkipped, err := o.runDriveFolder(ctx, item, targetRoot, overwrite, runErrs, runCounts)
		// entries/conflicts/skippedDups reflect everything enumerated before
		// err occurred (including a ctx cancellation mid-walk), so they are
		// folded into the aggregate regardless of err per spec.md §5's
		// cancellation contract and §1's partial-failure tolerance.
		manifest = append(manifest, entries...)
		conflicts = append(conflicts, itemConflicts...)
		skippedDups += itemSkipped
		if err != nil {
			runErrs.Add(fmt.Errorf("walking drive folder %s: %w", item.FolderID, err))
		}
	}

	manifestPath := filepath.Join(targetRoot, manifestFileName)
	if len(driveItems) > 0 {
		if err := writeManifest(manifestPath, manifest); err != nil {
			runErrs.Add(err)
		}
	}

	scheduled, completed := runCounts.Totals()

	if o.opts.ManifestOnly {
		o.reportSummary(cfg.Source, targetRoot, len(manifest), scheduled, completed, skippedDups, conflicts, runErrs)
		return runErrs.AsError()
	}

	if o.opts.VerifyOnly {
		o.verifyManifest(manifest, targetRoot, runErrs)
		o.reportSummary(cfg.Source, targetRoot, len(manifest), scheduled, completed, skippedDups, conflicts, runErrs)
		return runErrs.AsError()
	}

	o.reportSummary(cfg.Source, targetRoot, len(manifest), scheduled, completed, skippedDups, conflicts, runErrs)
	return runErrs.AsError()
}

func (o *Orchestrator) reportSummary(source, targetRoot string, listed, scheduled, completed, skippedDups int, conflicts []string, runErrs *RunErrors) {
	o.opts.Progress.Summary(progress.Summary{
		Source:      source,
		TargetRoot:  targetRoot,
		Listed:      listed,
		Scheduled:   scheduled,
		Completed:   completed,
		SkippedDups: skippedDups,
		Conflicts:   conflicts,
		Errs:        runErrs.Errs(),
	})
}

// runHTTPGroup fans httpItems out to a bounded pool. Per spec.md §4.5/§7, a
// single item's failure is recorded but never halts its siblings, so
// worker functions always return nil to errgroup — failures are tracked in
// runErrs, not in the group's own error.
func (o *Orchestrator) runHTTPGroup(ctx context.Context, items []config.HTTPFileItem, targetRoot string, overwrite bool, runErrs *RunErrors, runCounts *RunCounts) {
	var eg errgroup.Group
	eg.SetLimit(o.opts.MaxHTTPWorkers)

	for _, item := range items {
		item := item
		eg.Go(func() error {
			dest := filepath.Join(targetRoot, item.Filename)
			o.opts.Progress.DownloadScheduled()
			runCounts.Scheduled()
			fetcher := fetch.NewHTTPFetcher(o.opts.HTTPTimeout)
			res := fetcher.Fetch(ctx, item.URL, dest, overwrite)
			ok := res.State != fetch.StateFailed
			o.opts.Progress.DownloadFinished(ok)
			runCounts.Completed()
			if !ok {
				runErrs.Add(fmt.Errorf("http_file %s: %w", item.URL, res.Err))
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// runDriveFolder implements spec.md §4.7's per-folder pipeline: walk,
// dedupe, local-skip decision, schedule. Listing happens entirely on this
// goroutine (the single producer); only the scheduled downloads run in
// parallel, matching spec.md §5.
func (o *Orchestrator) runDriveFolder(ctx context.Context, item config.GDriveFolderItem, targetRoot string, overwrite bool, runErrs *RunErrors, runCounts *RunCounts) ([]ManifestEntry, []string, int, error) {
	lister, err := o.opts.ListerFactory(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("building drive lister: %w", err)
	}

	o.opts.Progress.FolderStarted(item.FolderID)

	entries := make(chan drivewalk.Entry, 64)
	walkErrCh := make(chan error, 1)
	go func() {
		walkErrCh <- drivewalk.Walk(ctx, lister, item.FolderID, "", item.Recursive, entries)
		close(entries)
	}()

	dedupe := newDeduper()
	var manifest []ManifestEntry

	var eg errgroup.Group
	eg.SetLimit(o.opts.MaxDriveWorkers)

	for entry := range entries {
		manifest = append(manifest, ManifestEntry{
			ID:   entry.Meta.ID,
			Path: entry.Path,
			MD5:  entry.Meta.MD5,
			Size: entry.Meta.Size,
		})
		o.opts.Progress.ItemListed(len(manifest))

		if o.opts.ManifestOnly || o.opts.VerifyOnly {
			continue
		}

		decision, conflict := dedupe.decide(entry.Path, entry.Meta.MD5)
		if conflict {
			o.opts.Progress.Conflict(entry.Path)
		}
		if decision == DecisionDuplicate {
			o.opts.Progress.SkippedDuplicate()
			continue
		}

		dest := filepath.Join(targetRoot, entry.Path)
		if !overwrite && o.shouldLocalSkip(dest, entry.Meta.Size, entry.Meta.MD5) {
			continue
		}

		entry := entry
		o.opts.Progress.DownloadScheduled()
		runCounts.Scheduled()
		eg.Go(func() error {
			ok := o.downloadDriveEntry(ctx, entry, dest, runErrs)
			o.opts.Progress.DownloadFinished(ok)
			runCounts.Completed()
			return nil
		})
	}

	walkErr := <-walkErrCh
	_ = eg.Wait()

	return manifest, dedupe.conflicts(), dedupe.skippedDuplicates(), walkErr
}

// shouldLocalSkip implements spec.md §4.7e: with overwrite already known
// false by the caller, skip when the destination exists and either
// verification is disabled or the existing file already satisfies it.
func (o *Orchestrator) shouldLocalSkip(dest string, expectedSize *int64, expectedMD5 string) bool {
	if _, err := os.Stat(dest); err != nil {
		return false
	}
	if o.opts.SkipVerify {
		return true
	}
	ok, err := verify.File(dest, expectedSize, expectedMD5)
	return err == nil && ok
}

func (o *Orchestrator) downloadDriveEntry(ctx context.Context, entry drivewalk.Entry, dest string, runErrs *RunErrors) bool {
	downloader, err := o.opts.Downloader(ctx)
	if err != nil {
		runErrs.Add(fmt.Errorf("gdrive_folder: building drive downloader for %s: %w", entry.Path, err))
		return false
	}
	fetcher := fetch.NewDriveFetcher(downloader, nil)

	res := fetcher.Fetch(ctx, entry.Meta.ID, dest, entry.Meta.Size, entry.Meta.MD5, o.opts.SkipVerify)
	if res.State == fetch.StateFailed {
		runErrs.Add(fmt.Errorf("gdrive_folder: %s: %w", entry.Path, res.Err))
		return false
	}
	return true
}

// verifyManifest implements spec.md §4.7's verify_only mode: every manifest
// entry must satisfy C3 against the file on disk. Up to the first ten
// failing paths are surfaced individually per spec.md §7's user-visible
// output rule; the rest are folded into the count on the aggregate error.
func (o *Orchestrator) verifyManifest(entries []ManifestEntry, targetRoot string, runErrs *RunErrors) {
	var bad []string
	for _, e := range entries {
		path := filepath.Join(targetRoot, e.Path)
		ok, err := verify.File(path, e.Size, e.MD5)
		if err != nil || !ok {
			bad = append(bad, e.Path)
		}
	}

	for i, p := range bad {
		if i >= 10 {
			break
		}
		runErrs.Add(&verify.Error{Path: p, Reason: "failed verify-only check"})
	}
	if len(bad) > 10 {
		runErrs.Add(fmt.Errorf("and %d more file(s) failed verification", len(bad)-10))
	}
}
