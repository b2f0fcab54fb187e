// Package handler exposes the back-office operations over HTTP.
//
// Each handler registers its reads with RegisterRoutes and its writes with
// RegisterWriteRoutes; the router decides which middleware guards each.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/apperr"
	"go.uber.org/zap"
)

var errEmptyBody = errors.New("empty body")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError answers with the status for err's category. Persistence and
// unclassified failures are logged; their detail is not sent to the client.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := apperr.HTTPStatus(err)
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		writeJSON(w, status, map[string]string{"error": err.Error()})
	case http.StatusBadGateway:
		logger.Error(op, zap.Error(err))
		writeJSON(w, status, map[string]string{"error": "storage unavailable, try again"})
	default:
		logger.Error(op, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// decodeJSON reads the request body into dst. It reports errEmptyBody for an
// empty body so callers can treat the body as optional.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// moneyString renders an amount the way the API reports it.
func moneyString(d decimal.Decimal) string {
	return d.StringFixed(2)
}
