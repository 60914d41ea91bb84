package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// ProcessTimeHeader reports wall-clock processing duration in milliseconds.
const ProcessTimeHeader = "X-Process-Time"

// TimingStage annotates every response with its processing duration. The
// measurement uses the monotonic clock and involves no I/O.
type TimingStage struct{}

func (TimingStage) Name() string { return "timing" }

func (TimingStage) OnRequest(c *Context, _ *http.Request) *Response {
	return nil
}

func (TimingStage) OnResponse(c *Context, resp *Response) {
	elapsed := time.Since(c.Start)
	resp.Header().Set(ProcessTimeHeader, FormatDuration(elapsed))
}

// FormatDuration renders a duration as decimal milliseconds, e.g. "45.23ms".
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}
