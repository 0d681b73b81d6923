package api

import (
	"encoding/json"
	"net/http"

	"rentalcore/internal/fault"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: APIError{Code: code, Message: message},
	})
}

// WriteFault renders a domain error with its taxonomy code, or a generic 500
// for anything that is not a fault.Error (storage failures and the like).
func WriteFault(w http.ResponseWriter, err error) {
	if fe, ok := fault.As(err); ok {
		WriteError(w, fault.HTTPStatus(fe.Code), string(fe.Code), fe.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
