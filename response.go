package webfetch

import (
	"net/http"
	"net/url"
	"sync"
)

// ResponseType tags a response with the filtering applied to it.
type ResponseType int

const (
	TypeDefault ResponseType = iota
	TypeBasic
	TypeCORS
	TypeOpaque
	TypeOpaqueRedirect
	TypeError
)

func (t ResponseType) String() string {
	switch t {
	case TypeDefault:
		return "default"
	case TypeBasic:
		return "basic"
	case TypeCORS:
		return "cors"
	case TypeOpaque:
		return "opaque"
	case TypeOpaqueRedirect:
		return "opaqueredirect"
	case TypeError:
		return "error"
	}
	return "unknown"
}

// CacheState records how a cache was involved in producing the response.
type CacheState int

const (
	CacheNone CacheState = iota
	CacheLocal
	CacheValidated
	CachePartial
)

// BodyState is the lifecycle of a response body: Empty until the first
// chunk, Receiving while bytes arrive, Done once complete.
type BodyState int

const (
	BodyEmpty BodyState = iota
	BodyReceiving
	BodyDone
)

// ResponseBody holds progressively disclosed body bytes. The fetch worker
// is the only writer; readers take the same lock per access.
type ResponseBody struct {
	mu    sync.Mutex
	state BodyState
	buf   []byte
}

func NewResponseBody() *ResponseBody {
	return &ResponseBody{}
}

// Append adds a chunk, moving the body from Empty to Receiving.
func (b *ResponseBody) Append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BodyReceiving
	b.buf = append(b.buf, chunk...)
}

// Finish marks the body complete. Finishing an Empty body yields Done with
// no bytes.
func (b *ResponseBody) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BodyDone
}

func (b *ResponseBody) State() BodyState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *ResponseBody) IsDone() bool {
	return b.State() == BodyDone
}

// Bytes returns a copy of the accumulated body bytes.
func (b *ResponseBody) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}

// Response is a fetch outcome, raw or filtered. A StatusCode of zero means
// the status is suppressed (opaque variants and network errors). A filtered
// response wraps the unfiltered one in Internal; the outer Body of a basic
// or CORS response is the same storage as the inner one, never a copy.
type Response struct {
	Type       ResponseType
	StatusCode int
	StatusText string
	Headers    http.Header
	Body       *ResponseBody
	URL        *url.URL
	URLList    []*url.URL
	CacheState CacheState
	Internal   *Response
}

func NewResponse() *Response {
	return &Response{
		Type:    TypeDefault,
		Headers: http.Header{},
		Body:    NewResponseBody(),
	}
}

// NetworkError is the uniform terminal failure value: every fetch that
// cannot produce a usable response returns one of these.
func NetworkError() *Response {
	return &Response{
		Type:    TypeError,
		Headers: http.Header{},
		Body:    NewResponseBody(),
	}
}

func (r *Response) IsNetworkError() bool {
	return r.Type == TypeError
}

// ActualResponse returns the unfiltered response: the nested internal one
// if present, otherwise r itself.
func (r *Response) ActualResponse() *Response {
	if r.Internal != nil {
		return r.Internal
	}
	return r
}

// IsDone reports full completion. A response is done iff its own body is
// complete (or its type forbids a body) and its internal response, if any,
// is complete as well; filtered responses observe streaming progress on the
// inner response.
func (r *Response) IsDone() bool {
	own := true
	switch r.Type {
	case TypeDefault, TypeBasic, TypeCORS:
		own = r.Body.IsDone()
	}
	if r.Internal != nil {
		return own && r.Internal.Body.IsDone()
	}
	return own
}
