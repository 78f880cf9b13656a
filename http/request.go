package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBody caps request bodies so a runaway client cannot exhaust memory.
const maxBody = 8 << 20 // 8 MB

// Request wraps *http.Request with binding helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes the JSON body into dst.
//
//	var body struct{ ShowID string `json:"showId"` }
//	if err := request.Bind(&body); err != nil { ... }
func (req *Request) Bind(dst any) error {
	defer req.raw.Body.Close()
	data, err := io.ReadAll(io.LimitReader(req.raw.Body, maxBody))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// Query returns a query-string value, or fallback when absent.
func (req *Request) Query(key, fallback string) string {
	if v := req.raw.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
