package utils

import (
	"encoding/json"
	"net/http"

	"github.com/lectorium/server/internal/apperr"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONData writes the success envelope {"data": v}.
func JSONData(w http.ResponseWriter, status int, v any) {
	JSON(w, status, map[string]any{"data": v})
}

// JSONError writes the error envelope {"error": message}.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"error": message})
}

// JSONAppError classifies err and writes it with the matching status.
func JSONAppError(w http.ResponseWriter, err error) {
	JSONError(w, apperr.HTTPStatus(err), apperr.From(err).Message)
}
