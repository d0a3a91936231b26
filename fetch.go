// Package webfetch orchestrates client-side fetches: scheme dispatch, CORS
// enforcement with a shared preflight cache, redirect following, and
// response-type filtering, delivering progress to a streaming target.
package webfetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web-fetch/web-fetch/corscache"
	"github.com/web-fetch/web-fetch/devtools"
)

const (
	defaultUserAgent = "web-fetch/1.0"
	maxRedirects     = 20
)

// Config customizes a Fetcher. The zero value works: global logger, real
// network transport, fresh in-memory preflight cache, no devtools.
type Config struct {
	// Logger replaces the global zerolog logger when non-nil.
	Logger *zerolog.Logger
	// Transport replaces the network transport. Tests substitute it; the
	// default speaks HTTP without following redirects on its own.
	Transport Transport
	// Cache is the preflight cache to share across fetchers. A nil cache
	// gets a private in-memory one.
	Cache *corscache.Cache
	// Devtools receives one event per completed fetch. Sends never block;
	// events are dropped when the channel is full.
	Devtools chan<- devtools.Event
	// UserAgent is sent when the request carries no User-Agent header.
	UserAgent string
}

// Fetcher runs fetches. Safe for concurrent use.
type Fetcher struct {
	cache     *corscache.Cache
	transport Transport
	log       zerolog.Logger
	devtools  chan<- devtools.Event
	userAgent string
}

func New(cfg Config) *Fetcher {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newNetTransport()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = corscache.New()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{
		cache:     cache,
		transport: transport,
		log:       logger.With().Str("component", "fetch").Logger(),
		devtools:  cfg.Devtools,
		userAgent: userAgent,
	}
}

// Fetch runs req to completion, delivering progress to target. It always
// returns a response; failures surface as a network-error response, never as
// a Go error. The returned response is the same value target saw in
// ProcessResponseEOF and is fully done by the time Fetch returns.
func (f *Fetcher) Fetch(ctx context.Context, req *Request, target Target) *Response {
	start := time.Now()
	if len(req.Body) > 0 {
		target.ProcessRequestBody(req)
	}
	target.ProcessRequestEOF(req)

	res, stream, sentHeaders := f.mainFetch(ctx, req)
	target.ProcessResponse(res)

	if stream != nil {
		if err := f.streamBody(res, stream, target); err != nil {
			f.log.Debug().Err(err).Str("url", req.URL().String()).Msg("Body stream failed")
			res = NetworkError()
		}
	} else if !res.IsNetworkError() {
		// local schemes arrive with their body already complete
		switch res.Type {
		case TypeDefault, TypeBasic, TypeCORS:
			if body := res.Body.Bytes(); len(body) > 0 {
				target.ProcessResponseChunk(body)
			}
		}
	}
	target.ProcessResponseEOF(res)

	f.log.Debug().
		Str("url", req.URL().String()).
		Str("type", res.Type.String()).
		Int("status", res.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Fetch complete")
	f.emitDevtools(req, res, sentHeaders, start)
	return res
}

// FetchAsync runs the fetch on its own goroutine; target receives all
// progress, ending with ProcessResponseEOF.
func (f *Fetcher) FetchAsync(ctx context.Context, req *Request, target Target) {
	go f.Fetch(ctx, req, target)
}

// FetchSync blocks until the fetch completes and returns the response.
func (f *Fetcher) FetchSync(ctx context.Context, req *Request) *Response {
	collector := newResponseCollector()
	f.FetchAsync(ctx, req, collector)
	return <-collector.done
}

// streamBody pumps the wire stream into the response body. Chunks are only
// announced for response types whose body is visible to the caller. A read
// failure before EOF is returned as a transport error; the partial body is
// still forced to a terminal state.
func (f *Fetcher) streamBody(res *Response, stream io.ReadCloser, target Target) error {
	actual := res.ActualResponse()
	buf := make([]byte, 32*1024)
	var readErr error
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			actual.Body.Append(chunk)
			switch res.Type {
			case TypeDefault, TypeBasic, TypeCORS:
				target.ProcessResponseChunk(chunk)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = err
			break
		}
	}
	stream.Close()
	actual.Body.Finish()
	return readErr
}

// mainFetch runs the fetch algorithm up to the response head. The returned
// stream, when non-nil, is the unread wire body the caller must pump;
// responses without a visible body come back with a nil stream. The returned
// headers are the ones sent on the final network hop, nil for local schemes
// and early failures.
func (f *Fetcher) mainFetch(ctx context.Context, req *Request) (*Response, io.ReadCloser, http.Header) {
	u := req.URL()
	if req.LocalURLsOnly && !isLocalScheme(u.Scheme) {
		f.log.Debug().Str("url", u.String()).Msg("Blocked non-local URL")
		return NetworkError(), nil, nil
	}
	if isLocalScheme(u.Scheme) {
		res := f.schemeFetch(req)
		if res.IsNetworkError() {
			return res, nil, nil
		}
		return filterResponse(res, TypeBasic), nil, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NetworkError(), nil, nil
	}

	corsFlag := false
	switch req.Mode {
	case ModeSameOrigin:
		if !req.SameOrigin() {
			f.log.Debug().Str("url", u.String()).Msg("Cross-origin request in same-origin mode")
			return NetworkError(), nil, nil
		}
	case ModeCORS:
		corsFlag = !req.SameOrigin()
	}

	if corsFlag && needsPreflight(req) {
		if !f.preflightAuthorized(ctx, req) {
			return NetworkError(), nil, nil
		}
	}

	return f.httpFetch(ctx, req, corsFlag)
}

// httpFetch performs the network hops, following redirects per the request's
// redirect mode until a terminal response or a network error. Tainting only
// escalates: one cross-origin hop anywhere in the chain taints the whole
// result, even if a later redirect returns to the request's own origin.
func (f *Fetcher) httpFetch(ctx context.Context, req *Request, corsFlag bool) (*Response, io.ReadCloser, http.Header) {
	crossedOrigin := !req.SameOrigin()
	for {
		headers := f.prepareHeaders(req, corsFlag)
		wire, err := f.transport.RoundTrip(ctx, req.Method(), req.URL(), headers, req.Body)
		if err != nil {
			f.log.Debug().Err(err).Str("url", req.URL().String()).Msg("Transport failure")
			return NetworkError(), nil, headers
		}

		if corsFlag && !corsCheck(req, wire.Headers) {
			wire.Body.Close()
			f.log.Debug().Str("url", req.URL().String()).Msg("CORS check failed")
			return NetworkError(), nil, headers
		}

		location := wire.Headers.Get("Location")
		if isRedirectStatus(wire.StatusCode) && location != "" {
			switch req.RedirectMode() {
			case RedirectError:
				wire.Body.Close()
				return NetworkError(), nil, headers
			case RedirectManual:
				res := responseFromWire(req, wire)
				wire.Body.Close()
				res.Body.Finish()
				return filterResponse(res, TypeOpaqueRedirect), nil, headers
			}
			wire.Body.Close()
			if req.RedirectCount() >= maxRedirects {
				f.log.Debug().Str("url", req.URL().String()).Msg("Too many redirects")
				return NetworkError(), nil, headers
			}
			next, err := req.URL().Parse(location)
			if err != nil || (next.Scheme != "http" && next.Scheme != "https") {
				return NetworkError(), nil, headers
			}
			rewriteMethodForRedirect(req, wire.StatusCode)
			req.AppendURL(next)
			if !req.SameOrigin() {
				crossedOrigin = true
				if req.Mode == ModeCORS {
					corsFlag = true
				}
			}
			if corsFlag && needsPreflight(req) && !f.preflightAuthorized(ctx, req) {
				return NetworkError(), nil, headers
			}
			continue
		}

		res := responseFromWire(req, wire)
		switch {
		case corsFlag:
			return filterResponse(res, TypeCORS), wire.Body, headers
		case req.Mode == ModeNoCORS && crossedOrigin:
			wire.Body.Close()
			res.Body.Finish()
			return filterResponse(res, TypeOpaque), nil, headers
		default:
			return filterResponse(res, TypeBasic), wire.Body, headers
		}
	}
}

func (f *Fetcher) prepareHeaders(req *Request, corsFlag bool) http.Header {
	headers := http.Header{}
	for name, values := range req.Headers {
		for _, v := range values {
			headers.Add(name, v)
		}
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", f.userAgent)
	}
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "*/*")
	}
	if referer := refererFor(req); referer != "" {
		headers.Set("Referer", referer)
	}
	if corsFlag || req.Mode == ModeCORS {
		headers.Set("Origin", req.Origin.String())
	}
	return headers
}

// refererFor serializes the Referer header value per the request's referrer
// policy. An absent or client-deferred referrer yields no header.
func refererFor(req *Request) string {
	u := req.Referrer().URL()
	if u == nil {
		return ""
	}
	switch req.ReferrerPolicy() {
	case PolicyNoReferrer:
		return ""
	case PolicyOrigin:
		origin := OriginFromURL(u)
		if origin.IsOpaque() {
			return ""
		}
		return origin.String() + "/"
	default:
		stripped := *u
		stripped.User = nil
		stripped.Fragment = ""
		return stripped.String()
	}
}

func responseFromWire(req *Request, wire *WireResponse) *Response {
	res := NewResponse()
	res.StatusCode = wire.StatusCode
	res.StatusText = wire.StatusText
	res.Headers = wire.Headers
	res.URL = req.URL()
	res.URLList = req.URLList()
	return res
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// rewriteMethodForRedirect applies the historical method downgrades: 301 and
// 302 turn POST into GET, 303 turns every method into GET. A downgrade drops
// the request body and its framing headers.
func rewriteMethodForRedirect(req *Request, status int) {
	method := req.Method()
	switch {
	case status == http.StatusSeeOther:
	case (status == http.StatusMovedPermanently || status == http.StatusFound) && method == http.MethodPost:
	default:
		return
	}
	req.SetMethod(http.MethodGet)
	req.Body = nil
	req.Headers.Del("Content-Type")
	req.Headers.Del("Content-Length")
}

func (f *Fetcher) emitDevtools(req *Request, res *Response, sentHeaders http.Header, start time.Time) {
	if f.devtools == nil {
		return
	}
	if sentHeaders == nil {
		sentHeaders = req.Headers
	}
	event := devtools.Event{
		Request: devtools.RequestRecord{
			URL:        req.URL().String(),
			Method:     req.Method(),
			Headers:    devtools.HeadersFrom(sentHeaders),
			HasBody:    len(req.Body) > 0,
			PipelineID: req.PipelineID,
			StartedAt:  start,
			DurationMS: time.Since(start).Milliseconds(),
		},
	}
	if !res.IsNetworkError() {
		actual := res.ActualResponse()
		event.Response = &devtools.ResponseRecord{
			StatusCode: actual.StatusCode,
			StatusText: actual.StatusText,
			Headers:    devtools.HeadersFrom(actual.Headers, "Date"),
			PipelineID: req.PipelineID,
		}
	}
	select {
	case f.devtools <- event:
	default:
		f.log.Warn().Str("pipeline", req.PipelineID).Msg("Devtools channel full, dropping event")
	}
}
