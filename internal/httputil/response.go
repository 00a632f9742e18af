package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/gridduel/client-go/internal/model"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes the backend's status/message error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, model.APIError{
		Status:  "error",
		Message: message,
	})
}
