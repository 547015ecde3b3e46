// Package verify checks local files against expected size and MD5,
// adapted from the teacher's drive/checksum.go checksum helpers.
package verify

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// blockSize is the chunk size used when hashing, so a single verification
// pass never buffers a whole file in memory.
const blockSize = 1 << 20 // 1 MiB

// Error wraps a verification failure for a specific path, distinguishing it
// from plain I/O errors for callers that branch on error kind.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("verification failed for %s: %s", e.Path, e.Reason)
}

// File reports whether path satisfies expectedSize (if non-nil) and
// expectedMD5 (if non-empty). A file with no expectations at all is
// considered acceptable. A missing file is never acceptable.
func File(path string, expectedSize *int64, expectedMD5 string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if expectedSize != nil && info.Size() != *expectedSize {
		return false, nil
	}

	if expectedMD5 == "" {
		return true, nil
	}

	sum, err := MD5(path)
	if err != nil {
		return false, err
	}
	return sum == expectedMD5, nil
}

// MD5 computes the hex-encoded MD5 digest of path, reading in blockSize
// chunks.
func MD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
