// Package server wires the repository engine (hash, store, metadata,
// location, ingestion) to an HTTP surface: routing, request
// envelopes, error-kind-to-status mapping, streaming upload/download,
// request-id propagation, and per-route metrics.
package server

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/config"
	"github.com/mrc-ide/outpack-server/internal/metadata"
)

// SchemaVersion is returned by GET / and identifies the wire contract
// this server implements.
const SchemaVersion = "0.1.1"

// DocumentCacheSize bounds the number of parsed metadata documents kept
// in memory per App. A size of 0 disables caching.
const DocumentCacheSize = 1024

// App holds everything a request handler needs: the repository root,
// its loaded configuration, and the metadata document index.
type App struct {
	Root   string
	Config *config.Config
	Index  *metadata.Index
	router *mux.Router
}

// NewApp runs the startup preflight (an `.outpack` directory with a
// config.json that parses and satisfies the server-mode constraints)
// and returns a ready-to-serve App.
func NewApp(root string) (*App, error) {
	cfg, err := config.Read(root)
	if err != nil {
		return nil, err
	}
	if err := config.CheckServerConfig(cfg); err != nil {
		return nil, err
	}

	app := &App{
		Root:   root,
		Config: cfg,
		Index:  metadata.NewIndex(DocumentCacheSize),
	}
	app.router = app.newRouter()
	return app, nil
}

// Handler returns the fully wrapped http.Handler: access logging,
// request-id assignment, panic recovery, and the route dispatch table.
func (app *App) Handler() http.Handler {
	var h http.Handler = app.router
	h = withRecovery(h)
	h = withRequestID(h)
	h = handlers.CombinedLoggingHandler(logrusWriter{}, h)
	return h
}

// logrusWriter adapts logrus's standard logger as the access-log sink
// for gorilla/handlers.CombinedLoggingHandler.
type logrusWriter struct{}

func (logrusWriter) Write(p []byte) (int, error) {
	logrus.StandardLogger().Writer().Write(p) //nolint:errcheck
	return len(p), nil
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, r, apperror.NotFoundf("This route does not exist"))
}
