// Package atomicfile provides the idempotent-create write used to
// append to the location ledger and to persist metadata documents: a
// write that succeeds as a no-op if the target already holds identical
// bytes, and fails with apperror.AlreadyExists if it holds different
// bytes.
package atomicfile

import (
	"bytes"
	"os"

	"github.com/mrc-ide/outpack-server/internal/apperror"
)

// IdempotentCreate creates path exclusively with data. If path already
// exists with byte-identical content the call is a no-op success; if it
// exists with different content it fails with apperror.AlreadyExists.
func IdempotentCreate(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		defer f.Close()
		if _, err := f.Write(data); err != nil {
			os.Remove(path)
			return apperror.Wrap(err, apperror.Internal, "failed to write '%s': %s", path, err)
		}
		return nil
	}
	if !os.IsExist(err) {
		return apperror.Wrap(err, apperror.Internal, "failed to create '%s': %s", path, err)
	}

	existing, readErr := os.ReadFile(path)
	if readErr != nil {
		return apperror.Wrap(readErr, apperror.Internal, "failed to read existing '%s': %s", path, readErr)
	}
	if bytes.Equal(existing, data) {
		return nil
	}
	return apperror.New(apperror.AlreadyExists, "'%s' already exists with different content", path)
}
