package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the correlation header, inbound and outbound.
const RequestIDHeader = "X-Request-ID"

// RequestIDStage assigns the request correlation id. An inbound id is reused
// verbatim without format validation; otherwise a fresh UUID is generated.
// The id is mirrored onto every response, including short-circuited ones.
type RequestIDStage struct{}

func (RequestIDStage) Name() string { return "request_id" }

func (RequestIDStage) OnRequest(c *Context, r *http.Request) *Response {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.RequestID = id
	return nil
}

func (RequestIDStage) OnResponse(c *Context, resp *Response) {
	resp.Header().Set(RequestIDHeader, c.RequestID)
}
