// Package devtools defines the observability records a fetcher emits for
// each completed fetch. Records are plain JSON-serializable values so that
// consumers can persist or forward them without depending on the fetcher's
// internal types.
package devtools

import (
	"net/http"
	"sort"
	"time"
)

// Header is one (name, value) pair of a recorded message.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RequestRecord describes the request as it was last sent on the wire,
// after any redirect rewrites.
type RequestRecord struct {
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	Headers    []Header  `json:"headers"`
	HasBody    bool      `json:"hasBody"`
	PipelineID string    `json:"pipelineId"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
}

// ResponseRecord describes the unfiltered response. It is absent from the
// event when the fetch ended in a network error.
type ResponseRecord struct {
	StatusCode int      `json:"statusCode"`
	StatusText string   `json:"statusText"`
	Headers    []Header `json:"headers"`
	PipelineID string   `json:"pipelineId"`
}

// Event is emitted once per fetch, after the response is complete.
type Event struct {
	Request  RequestRecord   `json:"request"`
	Response *ResponseRecord `json:"response,omitempty"`
}

// HeadersFrom flattens h into sorted pairs, skipping the named headers.
func HeadersFrom(h http.Header, omit ...string) []Header {
	skip := make(map[string]bool, len(omit))
	for _, name := range omit {
		skip[http.CanonicalHeaderKey(name)] = true
	}
	var out []Header
	for name, values := range h {
		if skip[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Value < out[j].Value
	})
	return out
}
