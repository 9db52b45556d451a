// Package upload models the source of an inbound file body as a tagged
// variant: either bytes already held in memory, or a file already
// streamed to a temp path on disk. Store.PutFile consumes this without
// caring which variant it was given.
package upload

import (
	"io"
	"os"

	"github.com/mrc-ide/outpack-server/internal/apperror"
)

// Source is either a buffered byte slice or a path to an already
// streamed temp file.
type Source struct {
	data     []byte
	tempPath string
	streamed bool
}

// Buffered wraps an in-memory buffer. Used by tests and by any caller
// that already holds the whole body in memory.
func Buffered(data []byte) Source {
	return Source{data: data}
}

// Streamed wraps the path to a file already written to disk, typically
// by an HTTP body-streaming extractor. Materialize moves (not copies)
// this file.
func Streamed(path string) Source {
	return Source{tempPath: path, streamed: true}
}

// Materialize writes the source's content to dest. For a streamed
// source this is a rename when dest is on the same filesystem,
// falling back to a copy otherwise. For a buffered source it is a
// plain write.
func (s Source) Materialize(dest string) error {
	if s.streamed {
		if err := os.Rename(s.tempPath, dest); err == nil {
			return nil
		}
		// Cross-device or similar: fall back to copy-then-remove.
		in, err := os.Open(s.tempPath)
		if err != nil {
			return apperror.Wrap(err, apperror.Internal, "failed to open staged upload: %s", err)
		}
		defer in.Close()
		if err := writeFrom(dest, in); err != nil {
			return err
		}
		os.Remove(s.tempPath)
		return nil
	}

	out, err := os.Create(dest)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to stage upload: %s", err)
	}
	defer out.Close()
	if _, err := out.Write(s.data); err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to stage upload: %s", err)
	}
	return nil
}

// Bytes returns the source's full content. For a streamed source this
// reads the staged temp file; callers that only need to materialize a
// large blob should prefer Materialize instead of holding this in
// memory.
func (s Source) Bytes() ([]byte, error) {
	if !s.streamed {
		return s.data, nil
	}
	data, err := os.ReadFile(s.tempPath)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "failed to read staged upload: %s", err)
	}
	return data, nil
}

// Cleanup removes the staged temp file, if any. It is a no-op for a
// buffered source and after a successful Materialize (which already
// consumed or renamed the temp file). Safe to call unconditionally from
// a deferred cleanup: a missing file is not an error.
func (s Source) Cleanup() {
	if s.streamed {
		os.Remove(s.tempPath)
	}
}

func writeFrom(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to stage upload: %s", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to stage upload: %s", err)
	}
	return nil
}
