package webfetch

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/xid"
)

// RequestMode controls how cross-origin targets are handled.
type RequestMode int

const (
	ModeNoCORS RequestMode = iota
	ModeSameOrigin
	ModeCORS
	ModeNavigate
)

// RedirectMode controls what happens when a hop answers with a 3xx.
type RedirectMode int

const (
	RedirectFollow RedirectMode = iota
	RedirectError
	RedirectManual
)

// ReferrerPolicy values are the subset of the Referrer-Policy tokens the
// orchestrator acts on when serializing the Referer header.
type ReferrerPolicy string

const (
	PolicyNoReferrer ReferrerPolicy = "no-referrer"
	PolicyOrigin     ReferrerPolicy = "origin"
	PolicyUnsafeURL  ReferrerPolicy = "unsafe-url"
)

type referrerKind int

const (
	referrerNone referrerKind = iota
	referrerClient
	referrerURL
)

// Referrer is either absent, deferred to the client context, or a URL.
type Referrer struct {
	kind referrerKind
	url  *url.URL
}

func NoReferrer() Referrer            { return Referrer{kind: referrerNone} }
func ClientReferrer() Referrer        { return Referrer{kind: referrerClient} }
func ReferrerURL(u *url.URL) Referrer { return Referrer{kind: referrerURL, url: u} }

// URL returns the referrer URL, or nil if the referrer is absent or deferred.
func (r Referrer) URL() *url.URL { return r.url }

// Origin is either a (scheme, host, port) tuple or an opaque origin.
// Opaque origins carry a unique nonce so that no two of them ever match.
type Origin struct {
	scheme string
	host   string
	port   string
	nonce  string
}

// OriginFromURL derives the origin of u. Non-hierarchical schemes
// (about:, data:, file:) yield an opaque origin.
func OriginFromURL(u *url.URL) Origin {
	switch u.Scheme {
	case "http", "https":
		return Origin{scheme: u.Scheme, host: u.Hostname(), port: portOrDefault(u)}
	}
	return OpaqueOrigin()
}

// OpaqueOrigin returns a fresh opaque origin that matches nothing,
// not even another opaque origin.
func OpaqueOrigin() Origin {
	return Origin{nonce: xid.New().String()}
}

func (o Origin) IsOpaque() bool { return o.nonce != "" }

// String serializes the origin for the Origin request header and the CORS
// check. Opaque origins serialize to "null".
func (o Origin) String() string {
	if o.IsOpaque() {
		return "null"
	}
	return o.scheme + "://" + o.host + ":" + o.port
}

// SameOrigin reports whether u belongs to this origin.
func (o Origin) SameOrigin(u *url.URL) bool {
	if o.IsOpaque() {
		return false
	}
	return o.scheme == u.Scheme && o.host == u.Hostname() && o.port == portOrDefault(u)
}

func portOrDefault(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch u.Scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// Request carries one fetch attempt's intent. Fields set at construction
// (origin, mode, flags) are fixed; method, referrer, redirect mode and the
// visited-URL list are rewritten in place by the orchestrator between
// redirect hops, so access to them goes through the mutex. Snapshot what you
// need rather than holding results across a redirect.
type Request struct {
	Origin           Origin
	Mode             RequestMode
	UseCORSPreflight bool
	LocalURLsOnly    bool
	// PipelineID correlates observability records for this fetch.
	PipelineID string

	Headers http.Header
	Body    []byte

	mu             sync.Mutex
	method         string
	redirectMode   RedirectMode
	referrer       Referrer
	referrerPolicy ReferrerPolicy
	urlList        []*url.URL
}

// NewRequest creates a request for u on behalf of origin. The URL list
// starts out containing u, keeping the invariant that its last element is
// the current target.
func NewRequest(u *url.URL, origin Origin) *Request {
	return &Request{
		Origin:     origin,
		Mode:       ModeNoCORS,
		PipelineID: xid.New().String(),
		Headers:    http.Header{},
		method:     http.MethodGet,
		referrer:   ClientReferrer(),
		urlList:    []*url.URL{u},
	}
}

// URL returns the current target, the last entry of the URL list.
func (r *Request) URL() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.urlList[len(r.urlList)-1]
}

// URLList returns a snapshot of every URL visited so far, in order.
func (r *Request) URLList() []*url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*url.URL, len(r.urlList))
	copy(list, r.urlList)
	return list
}

// AppendURL records a redirect target as the new current URL.
func (r *Request) AppendURL(u *url.URL) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urlList = append(r.urlList, u)
}

// RedirectCount is the number of redirects followed so far.
func (r *Request) RedirectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urlList) - 1
}

func (r *Request) Method() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.method
}

func (r *Request) SetMethod(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.method = m
}

func (r *Request) RedirectMode() RedirectMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redirectMode
}

func (r *Request) SetRedirectMode(m RedirectMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirectMode = m
}

func (r *Request) Referrer() Referrer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.referrer
}

func (r *Request) SetReferrer(ref Referrer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.referrer = ref
}

func (r *Request) ReferrerPolicy() ReferrerPolicy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.referrerPolicy
}

func (r *Request) SetReferrerPolicy(p ReferrerPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.referrerPolicy = p
}

// SameOrigin reports whether the current target URL is same-origin with the
// request's origin.
func (r *Request) SameOrigin() bool {
	return r.Origin.SameOrigin(r.URL())
}
