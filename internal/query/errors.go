package query

import (
	"strconv"

	"github.com/mrc-ide/outpack-server/internal/apperror"
)

// parseErrorf builds an apperror.InvalidInput carrying the byte offset
// at which parsing failed, alongside a short reason.
func parseErrorf(offset int, format string, args ...interface{}) error {
	return apperror.New(apperror.InvalidInput, "query parse error at offset %d: "+format, prepend(offset, args)...)
}

func prepend(offset int, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, offset)
	out = append(out, args...)
	return out
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
