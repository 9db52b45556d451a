package server

import (
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/dcontext"
)

// requestIDHeader is the header clients may set to propagate their own
// request id; one is generated when absent, mirroring
// distribution/registry/handlers/app.go's InstanceID assignment.
const requestIDHeader = "X-Request-Id"

// withRequestID assigns a request id, exposes it on the response, and
// binds a logger carrying it into the request context.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := logrus.WithField("request_id", id)
		ctx := dcontext.WithLogger(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withRecovery catches a panic from inside a handler and renders it as
// a generic Internal/UNKNOWN_ERROR response with no stack trace in the
// body, logging the stack for operators instead.
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				dcontext.GetLogger(r.Context()).
					Errorf("panic handling request: %v\n%s", rec, debug.Stack())
				writeFailure(w, r, apperror.Internalf("unexpected internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
