package utils

import (
	"encoding/json"
	"net/http"
	"time"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Details   []string    `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func ErrorResponse(message, error string, details ...string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// WriteJSON writes v with the given status. Encoding errors are returned; the
// status line has already been sent by then.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string, err error, details ...string) error {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	return WriteJSON(w, status, ErrorResponse(message, errText, details...))
}
