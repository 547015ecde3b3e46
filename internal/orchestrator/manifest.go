package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
)

// manifestFileName is the well-known name spec.md §6 requires under
// target_root.
const manifestFileName = ".manifest.json"

// ManifestEntry is one enumerated Drive file, matching spec.md §3's
// ManifestEntry. MD5 and Size are omitted from JSON when absent, mirroring
// the Python source's null fields without emitting literal nulls for the
// common case.
type ManifestEntry struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	MD5  string `json:"md5,omitempty"`
	Size *int64 `json:"size,omitempty"`
}

// writeManifest persists entries as pretty-printed UTF-8 JSON, always as an
// array (never null, even when empty), per spec.md §6.
func writeManifest(path string, entries []ManifestEntry) error {
	if entries == nil {
		entries = []ManifestEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// readManifest loads a previously-written manifest. DownloadAll itself
// never needs this — verify-only checks the freshly-walked in-memory
// manifest, not a stale one from disk — but it is the read half of the
// writeManifest contract and is exercised directly in manifest_test.go.
func readManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return entries, nil
}
