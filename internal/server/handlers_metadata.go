package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/location"
	"github.com/mrc-ide/outpack-server/internal/packetid"
	"github.com/mrc-ide/outpack-server/internal/store"
)

type schemaResponse struct {
	SchemaVersion string `json:"schema_version"`
}

func (app *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, schemaResponse{SchemaVersion: SchemaVersion})
}

func (app *App) handleMetadataList(w http.ResponseWriter, r *http.Request) {
	entries, err := location.ReadAll(app.Root)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, r, entries)
}

func (app *App) handleMetadataJSON(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := packetid.Canonicalise(raw)
	if err != nil {
		// An id that cannot name a packet cannot exist in the repository.
		writeFailure(w, r, apperror.NotFoundf("packet with id '%s' does not exist", raw))
		return
	}
	doc, err := app.Index.GetByID(app.Root, id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, r, doc)
}

func (app *App) handleMetadataText(w http.ResponseWriter, r *http.Request) {
	id, err := packetid.Canonicalise(mux.Vars(r)["id"])
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	raw, err := app.Index.GetRaw(app.Root, id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(raw))
}

func (app *App) handleChecksum(w http.ResponseWriter, r *http.Request) {
	algo := app.Config.Core.HashAlgorithm
	if requested := r.URL.Query().Get("alg"); requested != "" {
		algo = hash.Algorithm(requested)
	}
	if !hash.IsSupported(algo) {
		writeFailure(w, r, apperror.InvalidInputf("Unsupported hash algorithm '%s'", algo))
		return
	}

	digest, err := app.Index.IDsDigest(app.Root, algo)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, r, digest.String())
}

// packitPacket is the projection of a metadata document packit's client
// consumes: id, name, parameters, time, and custom metadata, with
// everything else (files, depends, scripts, ...) dropped.
type packitPacket struct {
	ID         string      `json:"id"`
	Name       interface{} `json:"name"`
	Parameters interface{} `json:"parameters"`
	Time       interface{} `json:"time"`
	Custom     interface{} `json:"custom"`
}

func projectPackitPacket(doc map[string]interface{}) packitPacket {
	return packitPacket{
		ID:         asString(doc["id"]),
		Name:       doc["name"],
		Parameters: doc["parameters"],
		Time:       doc["time"],
		Custom:     doc["custom"],
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func (app *App) handlePackitMetadata(w http.ResponseWriter, r *http.Request) {
	var since *float64
	if raw := r.URL.Query().Get("known_since"); raw != "" {
		var value float64
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			writeFailure(w, r, apperror.InvalidInputf("Invalid 'known_since' value '%s'", raw))
			return
		}
		since = &value
	}

	docs, err := app.Index.List(app.Root, since)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	packets := make([]packitPacket, 0, len(docs))
	for _, doc := range docs {
		packets = append(packets, projectPackitPacket(doc))
	}
	writeSuccess(w, r, packets)
}

type idsMissingRequest struct {
	IDs      []string `json:"ids"`
	Unpacked bool     `json:"unpacked"`
}

func (app *App) handlePacketsMissing(w http.ResponseWriter, r *http.Request) {
	var body idsMissingRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	missing, err := app.Index.MissingIDs(app.Root, body.IDs, body.Unpacked)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, r, missing)
}

type hashesMissingRequest struct {
	Hashes []string `json:"hashes"`
}

func (app *App) handleFilesMissing(w http.ResponseWriter, r *http.Request) {
	var body hashesMissingRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeFailure(w, r, err)
		return
	}
	missing, err := store.Missing(app.Root, body.Hashes)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, r, missing)
}
