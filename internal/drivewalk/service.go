package drivewalk

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/corpusacq/corpus-fetch/internal/pacer"
)

const listFields = "nextPageToken, files(id,name,mimeType,md5Checksum,size)"

// driveLister adapts a real *drive.Service, paced through a shared Pacer, to
// the Lister interface Walk consumes. Queries request items from shared
// drives too (SupportsAllDrives / IncludeItemsFromAllDrives), per spec.md
// §4.4.
type driveLister struct {
	svc   *drive.Service
	pacer *pacer.Pacer
}

// NewLister wraps svc, pacing every "files.list" call through p.
func NewLister(svc *drive.Service, p *pacer.Pacer) Lister {
	return &driveLister{svc: svc, pacer: p}
}

func (d *driveLister) ListChildren(ctx context.Context, folderID, pageToken string) ([]FileMeta, string, error) {
	var resp *drive.FileList

	err := d.pacer.Call(ctx, func() error {
		query := fmt.Sprintf("%q in parents and trashed = false", folderID)
		call := d.svc.Files.List().
			Q(query).
			Spaces("drive").
			Fields(googleapi.Field(listFields)).
			PageSize(1000).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		r, err := call.Do()
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("listing folder %s: %w", folderID, err)
	}

	files := make([]FileMeta, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, toFileMeta(f))
	}
	return files, resp.NextPageToken, nil
}

func toFileMeta(f *drive.File) FileMeta {
	name := f.Name
	if name == "" {
		name = f.Id
	}
	meta := FileMeta{
		ID:       f.Id,
		Name:     name,
		MimeType: f.MimeType,
		MD5:      f.Md5Checksum,
	}
	// The generated API client cannot distinguish "size absent" from
	// "size zero" on decode; treat zero as absent, matching the common case
	// of Google-native documents and folders, which never carry a size.
	if f.Size > 0 {
		size := f.Size
		meta.Size = &size
	}
	return meta
}
