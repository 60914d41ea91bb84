package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Response buffers a complete HTTP response so every stage can observe and
// annotate it during the unwind, including the final status code. It
// implements http.ResponseWriter for the terminal handler.
type Response struct {
	status int
	header http.Header
	body   bytes.Buffer
}

// NewResponse returns an empty response buffer.
func NewResponse() *Response {
	return &Response{header: make(http.Header)}
}

// JSON builds a short-circuit response carrying a JSON body.
func JSON(status int, v any) *Response {
	resp := NewResponse()
	resp.header.Set("Content-Type", "application/json")
	resp.status = status
	_ = json.NewEncoder(&resp.body).Encode(v)
	return resp
}

// Header implements http.ResponseWriter.
func (r *Response) Header() http.Header {
	return r.header
}

// Write implements http.ResponseWriter.
func (r *Response) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

// WriteHeader implements http.ResponseWriter. The first call wins, matching
// net/http semantics.
func (r *Response) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

// Status returns the response status, defaulting to 200 when the handler
// never set one.
func (r *Response) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Body returns the buffered response body.
func (r *Response) Body() []byte {
	return r.body.Bytes()
}

// flush writes the buffered response to the transport.
func (r *Response) flush(w http.ResponseWriter) {
	dst := w.Header()
	for k, vs := range r.header {
		dst[k] = vs
	}
	w.WriteHeader(r.Status())
	_, _ = w.Write(r.body.Bytes())
}
