package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/tecnotop/backend/libs/golog"
)

// JSONResponse writes a JSON response with the appropriate content-type header.
func JSONResponse(w http.ResponseWriter, statusCode int, res interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		golog.Errorf("Failed to encode JSON response: %s", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// JSONError writes an error message as a JSON response.
func JSONError(w http.ResponseWriter, statusCode int, msg string) {
	JSONResponse(w, statusCode, &errorResponse{Error: msg})
}
