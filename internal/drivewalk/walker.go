// Package drivewalk lazily enumerates a Google Drive folder subtree,
// adapted from the teacher's Fs.List query construction (drive/drive.go)
// and the original source's generator-based _walk_folder.
package drivewalk

import (
	"context"
	"strings"
)

// FolderMimeType is the Drive MIME type that marks an entry as a folder.
const FolderMimeType = "application/vnd.google-apps.folder"

// FileMeta is the subset of Drive file metadata the rest of the system
// needs, matching spec.md §3's DriveFileMeta.
type FileMeta struct {
	ID       string
	Name     string
	MimeType string
	MD5      string
	Size     *int64
}

// Entry pairs a non-folder Drive file with the local path it should land
// at, relative to the root the walk was started from.
type Entry struct {
	Meta FileMeta
	Path string
}

// Lister abstracts the Drive "files.list" call so Walk can be tested
// without a live API, and so the pacing/retry policy lives with the caller
// that owns the shared Pacer.
type Lister interface {
	ListChildren(ctx context.Context, folderID, pageToken string) (files []FileMeta, nextPageToken string, err error)
}

type frame struct {
	folderID string
	local    string
}

// Walk performs the depth-first traversal described in spec.md §4.4 using
// an explicit stack of (folder_id, local_root) frames, sending one Entry
// per non-folder descendant on entries in listing order. It is a
// single-producer operation: Walk itself is the only writer on entries, and
// callers must arrange for exactly one consumer.
//
// Walk returns the first listing error encountered (fatal to the walk, per
// spec.md §4.4) or nil once the subtree is exhausted. It stops early and
// returns ctx.Err() if ctx is canceled.
func Walk(ctx context.Context, lister Lister, rootFolderID, localRoot string, recursive bool, entries chan<- Entry) error {
	stack := []frame{{folderID: rootFolderID, local: localRoot}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pageToken := ""
		for {
			children, nextPageToken, err := lister.ListChildren(ctx, cur.folderID, pageToken)
			if err != nil {
				return err
			}

			for _, child := range children {
				childPath := joinRel(cur.local, sanitizeName(child.Name))
				if child.MimeType == FolderMimeType {
					if recursive {
						stack = append(stack, frame{folderID: child.ID, local: childPath})
					}
					continue
				}

				select {
				case entries <- Entry{Meta: child, Path: childPath}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			pageToken = nextPageToken
			if pageToken == "" {
				break
			}
		}
	}

	return nil
}

func joinRel(root, name string) string {
	if root == "" {
		return name
	}
	return root + "/" + name
}

// sanitizeName replaces path separators and control characters Drive allows
// in a display name but that would otherwise escape the intended directory
// or corrupt it on Windows/macOS filesystems, per spec.md §9 open question
// (b). "/" and "\" become "_"; other ASCII control characters are dropped.
// Names that sanitize down to "." or ".." get a trailing underscore so they
// can never collide with directory traversal entries.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteByte('_')
		case r < 0x20 || r == 0x7f:
			// drop control characters entirely
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if out == "." || out == ".." {
		return out + "_"
	}
	return out
}
