package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Response is the envelope every endpoint answers with. Code is a stable,
// machine-readable failure kind; Message is meant for people.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Failure codes shared by handlers and middleware.
const (
	CodeValidation   = "validation"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnavailable  = "transient"
	CodeInternal     = "internal"
)

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ResponseSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Status: true, Message: message, Data: data})
}

func ResponseCreated(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, Response{Status: true, Message: message, Data: data})
}

// ResponseFailure writes an error envelope. fields, when non-nil, lists
// per-field problems.
func ResponseFailure(w http.ResponseWriter, status int, code, message string, fields any) {
	writeJSON(w, status, Response{Message: message, Code: code, Errors: fields})
}

func ResponseBadRequest(w http.ResponseWriter, message string, fields any) {
	ResponseFailure(w, http.StatusBadRequest, CodeValidation, message, fields)
}

func ResponseUnauthorized(w http.ResponseWriter, message string) {
	ResponseFailure(w, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func ResponseNotFound(w http.ResponseWriter, message string) {
	ResponseFailure(w, http.StatusNotFound, CodeNotFound, message, nil)
}

// ResponseConflict answers 409; code distinguishes conflicts, rejected
// transitions and already-paid reservations.
func ResponseConflict(w http.ResponseWriter, code, message string) {
	ResponseFailure(w, http.StatusConflict, code, message, nil)
}

// ResponseServiceUnavailable answers 503 with a Retry-After hint in seconds.
func ResponseServiceUnavailable(w http.ResponseWriter, message string, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	ResponseFailure(w, http.StatusServiceUnavailable, CodeUnavailable, message, nil)
}

func ResponseInternalError(w http.ResponseWriter, message string) {
	ResponseFailure(w, http.StatusInternalServerError, CodeInternal, message, nil)
}
