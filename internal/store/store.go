// Package store implements the repository's content-addressed blob
// store: existence checks, enumeration, and atomic, hash-verified
// insertion of uploaded files.
package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/upload"
)

// FileExists reports whether the blob for h is present in root's store.
func FileExists(root, h string) (bool, error) {
	path, err := layout.FilePath(root, h)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, apperror.Wrap(err, apperror.Internal, "failed to stat '%s': %s", path, err)
}

// Missing returns the subset of wanted that is absent from the store,
// preserving order. It stops and returns the first parse error
// encountered.
func Missing(root string, wanted []string) ([]string, error) {
	var missing []string
	for _, h := range wanted {
		ok, err := FileExists(root, h)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, h)
		}
	}
	return missing, nil
}

// PutFile materialises src into the store under expectedHash,
// verifying the content matches before it is made visible. A second
// call for the same (content, hash) pair is a no-op. Concurrent callers
// inserting the same hash converge on an identical store state; the
// loser of the final rename is coerced to success.
func PutFile(root string, src upload.Source, expectedHash string) error {
	parsed, err := hash.Parse(expectedHash)
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp(root, "outpack-upload-*")
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to create temp upload directory: %s", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpData := filepath.Join(tmpDir, "data")
	if err := src.Materialize(tmpData); err != nil {
		return err
	}

	if err := hash.ValidateFile(tmpData, parsed); err != nil {
		return err
	}

	exists, err := FileExists(root, expectedHash)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	finalPath := layout.FilePathForHash(root, parsed)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to create store directory: %s", err)
	}

	if err := os.Rename(tmpData, finalPath); err != nil {
		// Another writer may have won the race and rename()'d into
		// place first; if the blob is now present, either rename left
		// the store in an identical state, so this is benign.
		if exists, existsErr := FileExists(root, expectedHash); existsErr == nil && exists {
			return nil
		}
		return apperror.Wrap(err, apperror.Internal, "failed to commit blob '%s': %s", expectedHash, err)
	}

	return nil
}

// Entry describes one blob found by Enumerate.
type Entry struct {
	Hash string
	Size int64
}

// Enumerate lazily walks every blob under root's file store, silently
// skipping entries it cannot stat (used only by the metrics collector,
// which tolerates a transient inconsistency rather than failing a
// scrape).
func Enumerate(root string, fn func(Entry)) {
	base := layout.FilesDir(root)
	_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fn(Entry{Hash: parts[0] + ":" + parts[1] + parts[2], Size: info.Size()})
		return nil
	})
}
