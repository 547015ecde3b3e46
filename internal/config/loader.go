package config

import (
	"fmt"
	"net/url"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// ValidationError reports a malformed or incomplete config file, along with
// the path that produced it.
type ValidationError struct {
	Path string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func invalid(path, format string, args ...interface{}) error {
	return &ValidationError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// rawConfig mirrors the on-disk YAML shape before validation.
type rawConfig struct {
	Source      string    `yaml:"source"`
	Description string    `yaml:"description"`
	OutputDir   string    `yaml:"output_dir"`
	Subdir      string    `yaml:"subdir"`
	Items       []rawItem `yaml:"items"`
}

type rawItem struct {
	Kind     string `yaml:"kind"`
	URL      string `yaml:"url"`
	Filename string `yaml:"filename"`
	FolderID string `yaml:"folder_id"`
	// Recursive is a pointer so that an absent key is distinguishable from
	// an explicit false; both default to false per spec, but keeping the
	// pointer makes the zero-value story explicit for reviewers.
	Recursive *bool `yaml:"recursive"`
}

const defaultOutputDir = "downloads/datasets"

// Load reads and validates the config file at configPath. If baseOutputDir
// is non-empty, it overrides whatever output_dir the config specifies, per
// spec.md §4.1 ("output_dir in the config is overridden if the orchestrator
// is constructed with a base output directory").
func Load(configPath string, baseOutputDir string) (*SourceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, invalid(configPath, "config file not found")
		}
		return nil, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, invalid(configPath, "not a valid YAML mapping: %v", err)
	}

	if raw.Source == "" {
		return nil, invalid(configPath, "missing required key 'source'")
	}

	outputDir := raw.OutputDir
	if outputDir == "" {
		outputDir = defaultOutputDir
	}
	if baseOutputDir != "" {
		outputDir = baseOutputDir
	}

	subdir := raw.Subdir
	if subdir == "" {
		subdir = raw.Source
	}

	if len(raw.Items) == 0 {
		return nil, invalid(configPath, "must contain a non-empty 'items' list")
	}

	items := make([]Item, 0, len(raw.Items))
	for i, ri := range raw.Items {
		item, err := parseItem(configPath, i, ri)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return &SourceConfig{
		Source:      raw.Source,
		Description: raw.Description,
		OutputDir:   outputDir,
		Subdir:      subdir,
		Items:       items,
	}, nil
}

func parseItem(configPath string, index int, ri rawItem) (Item, error) {
	kind := ri.Kind
	if kind == "" {
		kind = string(HTTPFileKind)
	}

	switch ItemKind(kind) {
	case HTTPFileKind:
		if ri.URL == "" {
			return nil, invalid(configPath, "items[%d]: http_file missing required 'url'", index)
		}
		filename := ri.Filename
		if filename == "" {
			derived, err := filenameFromURL(ri.URL)
			if err != nil {
				return nil, invalid(configPath, "items[%d]: %v", index, err)
			}
			filename = derived
		}
		return HTTPFileItem{URL: ri.URL, Filename: filename}, nil

	case GDriveFolderKind:
		if ri.FolderID == "" {
			return nil, invalid(configPath, "items[%d]: gdrive_folder missing required 'folder_id'", index)
		}
		recursive := ri.Recursive != nil && *ri.Recursive
		return GDriveFolderItem{FolderID: ri.FolderID, Recursive: recursive}, nil

	default:
		return nil, invalid(configPath, "items[%d]: unknown item kind %q", index, kind)
	}
}

// filenameFromURL derives a destination filename from the last percent-decoded
// path segment of url, matching the original source's download.py behavior.
func filenameFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("cannot parse url %q: %w", rawURL, err)
	}
	decoded, err := url.PathUnescape(parsed.Path)
	if err != nil {
		decoded = parsed.Path
	}
	name := path.Base(decoded)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot infer filename from URL: %s", rawURL)
	}
	return name, nil
}
