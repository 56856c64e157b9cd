package utils

import (
	"encoding/json"
	"net/http"
)

func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"message": message})
}

// RespondErrorCode adds a machine-readable code next to the message.
func RespondErrorCode(w http.ResponseWriter, status int, message, code string) {
	RespondJSON(w, status, map[string]string{"message": message, "code": code})
}
