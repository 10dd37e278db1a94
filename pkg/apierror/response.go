package apierror

import (
	"encoding/json"
	"net/http"
)

// Envelope is the wire shape of an error response.
type Envelope struct {
	Error Body `json:"error"`
}

type Body struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

// Body returns the serializable part of e.
func (e *Error) Body() Body {
	return Body{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status(),
		Details: e.Details,
	}
}

// Write renders err as the error envelope and returns the *Error written.
func Write(w http.ResponseWriter, err error) *Error {
	apiErr := From(err)
	if apiErr == nil {
		apiErr = Internal(nil)
	}
	WriteJSON(w, apiErr.Status(), Envelope{Error: apiErr.Body()})
	return apiErr
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
