package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	drivev2 "google.golang.org/api/drive/v2"
	"google.golang.org/api/drive/v3"

	"github.com/corpusacq/corpus-fetch/internal/apierror"
	"github.com/corpusacq/corpus-fetch/internal/ioutil"
	"github.com/corpusacq/corpus-fetch/internal/pacer"
	"github.com/corpusacq/corpus-fetch/internal/verify"
)

// driveBlockSize is the read/write block size for Drive media downloads.
const driveBlockSize = 1 << 20 // 1 MiB, matching verify's MD5 block size

// v2DownloadMinSize is the file-size threshold above which the downloader
// switches from v3's media alt parameter to a v2 Files.Get download, the
// same behavior the teacher gated behind its (disabled-by-default)
// V2DownloadMinSize option. corpus-fetch enables it unconditionally at a
// fixed threshold since there's no per-remote config surface for it here.
const v2DownloadMinSize = 200 << 20 // 200 MiB

// MediaDownloader abstracts the Drive media-download call so DriveFetcher
// can be tested without a live API. Implementations are expected to pace
// and retry their own transient failures. size is the file's known size (0
// if unknown), used to pick between the v3 and v2 download paths.
type MediaDownloader interface {
	Download(ctx context.Context, fileID string, size int64) (io.ReadCloser, error)
}

// driveMediaDownloader is the production MediaDownloader, backed by a real
// *drive.Service (and, for large files, a *drivev2.Service) paced through a
// shared *pacer.Pacer.
type driveMediaDownloader struct {
	svc   *drive.Service
	v2Svc *drivev2.Service
	pacer *pacer.Pacer
}

// NewMediaDownloader wraps svc, pacing every media-download call through p.
// v2Svc may be nil, in which case every download uses the v3 path
// regardless of size.
func NewMediaDownloader(svc *drive.Service, v2Svc *drivev2.Service, p *pacer.Pacer) MediaDownloader {
	return &driveMediaDownloader{svc: svc, v2Svc: v2Svc, pacer: p}
}

func (d *driveMediaDownloader) Download(ctx context.Context, fileID string, size int64) (io.ReadCloser, error) {
	if d.v2Svc != nil && size >= v2DownloadMinSize {
		return d.downloadV2(ctx, fileID)
	}
	return d.downloadV3(ctx, fileID)
}

func (d *driveMediaDownloader) downloadV3(ctx context.Context, fileID string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := d.pacer.Call(ctx, func() error {
		resp, err := d.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, apierror.Translate(fmt.Sprintf("downloading drive file %s", fileID), err)
	}
	return body, nil
}

// downloadV2 uses the legacy Drive v2 API's direct file download, which
// rclone's Drive backend preferred for very large files over v3's media alt
// parameter. Unlike the teacher's version (which discarded this response
// and issued a second, unrelated request against an unset URL), this keeps
// the v2 response body as-is.
func (d *driveMediaDownloader) downloadV2(ctx context.Context, fileID string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := d.pacer.Call(ctx, func() error {
		resp, err := d.v2Svc.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return err
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, apierror.Translate(fmt.Sprintf("downloading drive file %s via v2", fileID), err)
	}
	return body, nil
}

// DriveFetcher downloads a Drive file by id to an atomically-renamed
// destination, then verifies it, per spec.md §4.6. The temp name is keyed
// by Drive id (not destination path), so two manifest entries landing on
// the same path never race through a shared temp file.
type DriveFetcher struct {
	downloader MediaDownloader
	onChunk    func(fileID string, bytesWritten int64)
}

// NewDriveFetcher builds a DriveFetcher over downloader. onChunk, if
// non-nil, is invoked after every block write with the cumulative byte
// count for that file — spec.md §4.6's "chunk-level progress may be
// emitted".
func NewDriveFetcher(downloader MediaDownloader, onChunk func(fileID string, bytesWritten int64)) *DriveFetcher {
	return &DriveFetcher{downloader: downloader, onChunk: onChunk}
}

// Fetch downloads fileID to dest. If skipVerify is false, the downloaded
// file is checked against expectedSize/expectedMD5 via internal/verify; a
// verification failure deletes dest and returns StateFailed.
func (f *DriveFetcher) Fetch(ctx context.Context, fileID, dest string, expectedSize *int64, expectedMD5 string, skipVerify bool) Result {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return failed(dest, fmt.Errorf("creating destination directory: %w", err))
	}

	tempPath := dest + ".part." + fileID

	var knownSize int64
	if expectedSize != nil {
		knownSize = *expectedSize
	}
	body, err := f.downloader.Download(ctx, fileID, knownSize)
	if err != nil {
		return failed(dest, err)
	}
	defer body.Close()

	temp, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return failed(dest, fmt.Errorf("creating temp file %s: %w", tempPath, err))
	}

	written, copyErr := f.copyChunked(temp, body, fileID)
	closeErr := temp.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		return failed(dest, apierror.Translate("streaming drive media", copyErr))
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return failed(dest, fmt.Errorf("closing temp file %s: %w", tempPath, closeErr))
	}
	_ = written

	if err := os.Rename(tempPath, dest); err != nil {
		os.Remove(tempPath)
		return failed(dest, fmt.Errorf("renaming %s to %s: %w", tempPath, dest, err))
	}

	if skipVerify {
		return verified(dest)
	}

	ok, err := verify.File(dest, expectedSize, expectedMD5)
	if err != nil {
		os.Remove(dest)
		return failed(dest, fmt.Errorf("verifying %s: %w", dest, err))
	}
	if !ok {
		os.Remove(dest)
		return failed(dest, &verify.Error{Path: dest, Reason: "downloaded content does not match expected size/md5"})
	}

	return verified(dest)
}

func (f *DriveFetcher) copyChunked(dst io.Writer, src io.Reader, fileID string) (int64, error) {
	counter := &ioutil.Counter{}
	tee := io.TeeReader(src, counter)
	buf := make([]byte, driveBlockSize)
	for {
		n, rerr := tee.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return counter.BytesRead(), werr
			}
			if f.onChunk != nil {
				f.onChunk(fileID, counter.BytesRead())
			}
		}
		if rerr == io.EOF {
			return counter.BytesRead(), nil
		}
		if rerr != nil {
			return counter.BytesRead(), rerr
		}
	}
}
