package webfetch

// Target receives the progress of one fetch. The orchestrator invokes the
// methods in order: zero or more ProcessRequestBody calls, one
// ProcessRequestEOF, one ProcessResponse, zero or more ProcessResponseChunk
// calls, and finally exactly one ProcessResponseEOF, even on failure.
type Target interface {
	ProcessRequestBody(req *Request)
	ProcessRequestEOF(req *Request)
	ProcessResponse(res *Response)
	ProcessResponseChunk(chunk []byte)
	ProcessResponseEOF(res *Response)
}

// NopTarget discards all progress notifications.
type NopTarget struct{}

func (NopTarget) ProcessRequestBody(*Request)  {}
func (NopTarget) ProcessRequestEOF(*Request)   {}
func (NopTarget) ProcessResponse(*Response)    {}
func (NopTarget) ProcessResponseChunk([]byte)  {}
func (NopTarget) ProcessResponseEOF(*Response) {}

// responseCollector funnels the terminal response of an async fetch into a
// channel, turning the streaming delivery into a blocking call.
type responseCollector struct {
	NopTarget
	done chan *Response
}

func newResponseCollector() *responseCollector {
	return &responseCollector{done: make(chan *Response, 1)}
}

func (c *responseCollector) ProcessResponseEOF(res *Response) {
	c.done <- res
}
