package server

import (
	"encoding/json"
	"net/http"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/dcontext"
)

// envelope is the response wrapper every JSON endpoint serves, per the
// success/failure shape in spec §4.8.
type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Errors []errorItem `json:"errors"`
}

type errorItem struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, r, http.StatusOK, envelope{Status: "success", Data: data, Errors: nil})
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	detail := err.Error()
	if e, ok := apperror.As(err); ok {
		detail = e.Detail
	}

	dcontext.GetLogger(r.Context()).
		WithError(err).
		Infof("request failed with %s", kind)

	writeJSON(w, r, status, envelope{
		Status: "failure",
		Data:   nil,
		Errors: []errorItem{{Error: kind.String(), Detail: detail}},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		dcontext.GetLogger(r.Context()).WithError(err).Error("failed to encode response body")
	}
}

// statusFor maps an apperror.Kind to the HTTP status in spec §6.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.NotFound:
		return http.StatusNotFound
	case apperror.InvalidInput, apperror.HashMismatch, apperror.UnexpectedEOF:
		return http.StatusBadRequest
	case apperror.AlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
