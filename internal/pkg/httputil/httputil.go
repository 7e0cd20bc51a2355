// Package httputil provides shared HTTP response/request helpers for
// handlers.
//
// Every handler should use these instead of writing raw http.ResponseWriter
// calls. All responses carry the {"success": bool, ...} envelope the client
// application expects.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope is the standard response wrapper. Success responses embed their
// payload next to the success flag; error responses carry a stable
// machine-readable reason plus optional human-readable details.
type Envelope map[string]any

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[httputil] JSON encode error: %v", err)
	}
}

// OK writes a 200 success envelope merging the given payload fields.
func OK(w http.ResponseWriter, payload Envelope) {
	Success(w, http.StatusOK, payload)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, payload Envelope) {
	Success(w, http.StatusCreated, payload)
}

// Success writes a success envelope with the given status.
func Success(w http.ResponseWriter, status int, payload Envelope) {
	body := Envelope{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	JSON(w, status, body)
}

// Fail writes an error envelope. reason should be stable and
// machine-readable; details, if non-empty, is free-form.
func Fail(w http.ResponseWriter, status int, reason, details string) {
	body := Envelope{"success": false, "error": reason}
	if details != "" {
		body["details"] = details
	}
	JSON(w, status, body)
}

// BadRequest writes a 400 error envelope.
func BadRequest(w http.ResponseWriter, reason string) {
	Fail(w, http.StatusBadRequest, reason, "")
}

// InternalError writes a 500 envelope. The real error is logged but never
// leaked to the client.
func InternalError(w http.ResponseWriter, err error) {
	log.Printf("[httputil] internal error: %v", err)
	Fail(w, http.StatusInternalServerError, "internal server error", "")
}

// Decode reads JSON from the request body into dst. Returns false and
// writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Fail(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return false
	}
	return true
}
