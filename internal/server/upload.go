package server

import (
	"io"
	"net/http"
	"os"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/upload"
)

// uploadHandler is a route handler given the request body already
// extracted as an upload.Source, so it never has to know whether the
// body was streamed to disk or buffered.
type uploadHandler func(w http.ResponseWriter, r *http.Request, src upload.Source)

// uploadExtractor streams the request body into a temp file inside
// root/.outpack/files, the same filesystem store.PutFile's final rename
// targets, so that rename is a cheap, atomic local operation rather than
// a cross-filesystem copy.
func (app *App) uploadExtractor(next uploadHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dir := layout.FilesDir(app.Root)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			writeFailure(w, r, apperror.Wrap(err, apperror.Internal, "failed to create upload directory: %s", err))
			return
		}

		tmp, err := os.CreateTemp(dir, "upload-*")
		if err != nil {
			writeFailure(w, r, apperror.Wrap(err, apperror.Internal, "failed to create temp upload file: %s", err))
			return
		}
		tmpPath := tmp.Name()

		_, copyErr := io.Copy(tmp, r.Body)
		closeErr := tmp.Close()
		_ = r.Body.Close()

		src := upload.Streamed(tmpPath)
		defer src.Cleanup()

		if copyErr != nil {
			writeFailure(w, r, apperror.New(apperror.UnexpectedEOF, "request body ended unexpectedly: %s", copyErr))
			return
		}
		if closeErr != nil {
			writeFailure(w, r, apperror.Wrap(closeErr, apperror.Internal, "failed to stage upload: %s", closeErr))
			return
		}

		next(w, r, src)
	}
}
