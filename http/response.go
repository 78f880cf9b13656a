package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tracklet/appkit/apperr"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	msg := first(message, "Not found.")
	res.JSON(http.StatusNotFound, envelope{"message": msg})
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	msg := first(message, "Server Error.")
	res.JSON(http.StatusInternalServerError, envelope{"message": msg})
}

// FromError maps runtime errors onto HTTP statuses: validation failures
// become 422 with their detail and available names, everything else 500.
func (res *Response) FromError(err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		body := envelope{"message": verr.Message}
		if verr.Detail != nil {
			body["detail"] = toJSONValue(verr.Detail)
		}
		if len(verr.Available) > 0 {
			body["available"] = verr.Available
		}
		res.JSON(http.StatusUnprocessableEntity, body)
		return
	}
	res.JSON(http.StatusInternalServerError, envelope{"message": err.Error()})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}

// toJSONValue keeps error details encodable: errors render as strings.
func toJSONValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}
