package server

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/ingest"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/store"
	"github.com/mrc-ide/outpack-server/internal/upload"
)

func (app *App) handleFileGet(w http.ResponseWriter, r *http.Request) {
	h := mux.Vars(r)["hash"]
	path, err := layout.FilePath(app.Root, h)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeFailure(w, r, apperror.NotFoundf("file with hash '%s' does not exist", h))
			return
		}
		writeFailure(w, r, apperror.Wrap(err, apperror.Internal, "failed to open '%s': %s", path, err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

func (app *App) handleFilePost(w http.ResponseWriter, r *http.Request, src upload.Source) {
	h := mux.Vars(r)["hash"]
	if err := store.PutFile(app.Root, src, h); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, r, nil)
}

func (app *App) handlePacketPost(w http.ResponseWriter, r *http.Request, src upload.Source) {
	h := mux.Vars(r)["hash"]
	raw, err := src.Bytes()
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := ingest.AddPacket(app.Root, raw, h); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, r, nil)
}
