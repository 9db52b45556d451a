package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

const (
	routeRoot           = "root"
	routeMetadataList   = "metadata-list"
	routeMetadataJSON   = "metadata-json"
	routeMetadataText   = "metadata-text"
	routeChecksum       = "checksum"
	routePackitMetadata = "packit-metadata"
	routePacketsMissing = "packets-missing"
	routeFilesMissing   = "files-missing"
	routeFileGet        = "file-get"
	routeFilePost       = "file-post"
	routePacketPost     = "packet-post"
	routeMetrics        = "metrics"
)

func (app *App) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	r.HandleFunc("/", app.handleRoot).Methods(http.MethodGet).Name(routeRoot)
	r.HandleFunc("/metadata/list", app.handleMetadataList).Methods(http.MethodGet).Name(routeMetadataList)
	r.HandleFunc("/metadata/{id}/json", app.handleMetadataJSON).Methods(http.MethodGet).Name(routeMetadataJSON)
	r.HandleFunc("/metadata/{id}/text", app.handleMetadataText).Methods(http.MethodGet).Name(routeMetadataText)
	r.HandleFunc("/checksum", app.handleChecksum).Methods(http.MethodGet).Name(routeChecksum)
	r.HandleFunc("/packit/metadata", app.handlePackitMetadata).Methods(http.MethodGet).Name(routePackitMetadata)
	r.HandleFunc("/packets/missing", app.handlePacketsMissing).Methods(http.MethodPost).Name(routePacketsMissing)
	r.HandleFunc("/files/missing", app.handleFilesMissing).Methods(http.MethodPost).Name(routeFilesMissing)
	r.HandleFunc("/file/{hash}", app.handleFileGet).Methods(http.MethodGet).Name(routeFileGet)
	r.HandleFunc("/file/{hash}", app.uploadExtractor(app.handleFilePost)).Methods(http.MethodPost).Name(routeFilePost)
	r.HandleFunc("/packet/{hash}", app.uploadExtractor(app.handlePacketPost)).Methods(http.MethodPost).Name(routePacketPost)
	r.Handle("/metrics", metricsHandler(app.Root, app.Index)).Methods(http.MethodGet).Name(routeMetrics)

	// Registered with r.Use rather than wrapped around the router so
	// that mux.CurrentRoute is already populated when the middleware
	// runs: Use middleware executes after route matching, not before.
	r.Use(withMetrics)

	return r
}
