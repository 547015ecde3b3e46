// Command manifest-dedupe collapses duplicate entries out of a dataset's
// .manifest.json without re-walking Drive or re-downloading anything. It is
// a standalone maintenance tool, deliberately not wired into
// internal/orchestrator: corpus-fetch's own dedupe pass runs inline during
// a fetch, while this tool repairs a manifest after the fact (e.g. one
// written by an older version of corpus-fetch, or hand-edited).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// entry mirrors orchestrator.ManifestEntry's JSON shape. It is redeclared
// here rather than imported so this tool has no compile-time dependency on
// internal/orchestrator and keeps working against manifests written by any
// past version of the schema.
type entry struct {
	ID   string          `json:"id"`
	Path string          `json:"path"`
	MD5  string          `json:"md5,omitempty"`
	Size *int64          `json:"size,omitempty"`
	Rest json.RawMessage `json:"-"`
}

type conflict struct {
	Path string   `json:"path"`
	MD5s []string `json:"md5s"`
}

type stats struct {
	DatasetDir        string `json:"dataset_dir"`
	EntriesBefore     int    `json:"entries_before"`
	EntriesAfter      int    `json:"entries_after"`
	DuplicatesRemoved int    `json:"duplicates_removed"`
	MD5MissingEntries int    `json:"md5_missing_entries"`
	ConflictingPaths  int    `json:"conflicting_paths"`
}

type report struct {
	Stats    stats `json:"stats"`
	Examples struct {
		ConflictsSample []conflict `json:"conflicts_sample"`
	} `json:"examples"`
}

var flags struct {
	datasetDir string
	dryRun     bool
	noBackup   bool
	reportFile string
}

func main() {
	cmd := &cobra.Command{
		Use:   "manifest-dedupe",
		Short: "Remove duplicate (path, md5) entries from a dataset's .manifest.json",
		RunE:  run,
	}
	cmd.Flags().StringVar(&flags.datasetDir, "dataset-dir", "", "dataset directory containing .manifest.json (required)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "compute and report without writing changes")
	cmd.Flags().BoolVar(&flags.noBackup, "no-backup", false, "do not write a timestamped backup before rewriting")
	cmd.Flags().StringVar(&flags.reportFile, "report-file", "", "where to write the JSON report (default <dataset-dir>/dedupe_report.json)")
	cmd.MarkFlagRequired("dataset-dir") //nolint:errcheck

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	manifestPath := filepath.Join(flags.datasetDir, ".manifest.json")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("manifest not found: %s: %w", manifestPath, err)
	}

	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", manifestPath, err)
	}

	rep, deduped, removed := dedupe(entries, flags.datasetDir)

	if !flags.dryRun {
		if removed > 0 && !flags.noBackup {
			backupPath := fmt.Sprintf("%s.bak.%s", manifestPath, time.Now().UTC().Format("20060102T150405Z"))
			if err := os.WriteFile(backupPath, raw, 0o644); err != nil {
				return fmt.Errorf("writing backup %s: %w", backupPath, err)
			}
		}
		if removed > 0 {
			if err := writeEntries(manifestPath, deduped); err != nil {
				return err
			}
		}
	}

	reportPath := flags.reportFile
	if reportPath == "" {
		reportPath = filepath.Join(flags.datasetDir, "dedupe_report.json")
	}
	if data, err := json.MarshalIndent(rep, "", "  "); err == nil {
		// Non-fatal: a report write failure shouldn't undo a successful dedupe.
		_ = os.WriteFile(reportPath, data, 0o644)
	}

	fmt.Printf("Dedupe complete for %s: %d -> %d (removed %d duplicates). md5-missing entries: %d. conflicting paths: %d.\n",
		rep.Stats.DatasetDir, rep.Stats.EntriesBefore, rep.Stats.EntriesAfter, rep.Stats.DuplicatesRemoved,
		rep.Stats.MD5MissingEntries, rep.Stats.ConflictingPaths)

	if len(rep.Examples.ConflictsSample) > 0 {
		fmt.Println("Example conflicting paths (different md5 for same path):")
		for i, c := range rep.Examples.ConflictsSample {
			if i >= 10 {
				break
			}
			fmt.Printf(" - %s (%s)\n", c.Path, strings.Join(c.MD5s, ", "))
		}
	}
	return nil
}

// dedupe keeps the first occurrence of each (path, md5) pair in order,
// leaves md5-less entries untouched, and reports paths that appear with
// more than one distinct md5 without attempting to resolve them.
func dedupe(entries []entry, datasetDir string) (report, []entry, int) {
	type key struct{ path, md5 string }
	seen := make(map[key]struct{}, len(entries))
	md5sByPath := make(map[string]map[string]struct{})
	deduped := make([]entry, 0, len(entries))

	var duplicatesRemoved, md5Missing int
	for _, e := range entries {
		if e.MD5 == "" {
			md5Missing++
			deduped = append(deduped, e)
			continue
		}
		k := key{e.Path, e.MD5}
		if _, ok := seen[k]; ok {
			duplicatesRemoved++
			continue
		}
		seen[k] = struct{}{}
		if md5sByPath[e.Path] == nil {
			md5sByPath[e.Path] = make(map[string]struct{})
		}
		md5sByPath[e.Path][e.MD5] = struct{}{}
		deduped = append(deduped, e)
	}

	var conflictPaths []string
	for p, md5s := range md5sByPath {
		if len(md5s) > 1 {
			conflictPaths = append(conflictPaths, p)
		}
	}
	sort.Strings(conflictPaths)

	var sample []conflict
	for i, p := range conflictPaths {
		if i >= 20 {
			break
		}
		md5s := make([]string, 0, len(md5sByPath[p]))
		for m := range md5sByPath[p] {
			md5s = append(md5s, m)
		}
		sort.Strings(md5s)
		sample = append(sample, conflict{Path: p, MD5s: md5s})
	}

	rep := report{Stats: stats{
		DatasetDir:        datasetDir,
		EntriesBefore:     len(entries),
		EntriesAfter:      len(deduped),
		DuplicatesRemoved: duplicatesRemoved,
		MD5MissingEntries: md5Missing,
		ConflictingPaths:  len(conflictPaths),
	}}
	rep.Examples.ConflictsSample = sample
	return rep, deduped, duplicatesRemoved
}

func writeEntries(path string, entries []entry) error {
	if entries == nil {
		entries = []entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}
