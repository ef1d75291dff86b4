package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ToUint parses a decimal id from a path or query parameter.
func ToUint(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	return uint(n), err
}

type errorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError answers with {"error": message}.
func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, errorBody{Error: message})
}
