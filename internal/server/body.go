package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mrc-ide/outpack-server/internal/apperror"
)

// decodeJSONBody parses r's body as JSON into dest, mapping a truncated
// body to UnexpectedEOF and any other decode failure to InvalidInput.
func decodeJSONBody(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return apperror.New(apperror.UnexpectedEOF, "request body ended unexpectedly: %s", err)
		}
		return apperror.New(apperror.InvalidInput, "failed to parse request body: %s", err)
	}
	return nil
}
