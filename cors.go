package webfetch

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/web-fetch/web-fetch/corscache"
)

// corsSafelistedMethods need no preflight on their own.
var corsSafelistedMethods = []string{http.MethodGet, http.MethodHead, http.MethodPost}

// corsSafelistedRequestHeaders may be sent cross-origin without
// authorization.
var corsSafelistedRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Content-Language",
	"Content-Type",
}

func isCORSSafelistedMethod(method string) bool {
	for _, m := range corsSafelistedMethods {
		if m == method {
			return true
		}
	}
	return false
}

func isCORSSafelistedHeader(name string) bool {
	for _, h := range corsSafelistedRequestHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

// unsafeRequestHeaders returns the non-safelisted header names of req,
// lowercased and sorted, as they appear in Access-Control-Request-Headers.
func unsafeRequestHeaders(req *Request) []string {
	var names []string
	for name := range req.Headers {
		if !isCORSSafelistedHeader(name) {
			names = append(names, strings.ToLower(name))
		}
	}
	sort.Strings(names)
	return names
}

func preflightKey(req *Request) corscache.Key {
	return corscache.Key{
		Origin: req.Origin.String(),
		URL:    req.URL().String(),
	}
}

// needsPreflight reports whether the CORS request must be authorized before
// it is sent: either the caller forced a preflight, or the request uses a
// non-simple method or header.
func needsPreflight(req *Request) bool {
	if req.UseCORSPreflight {
		return true
	}
	if !isCORSSafelistedMethod(req.Method()) {
		return true
	}
	return len(unsafeRequestHeaders(req)) > 0
}

// preflightAuthorized consults the preflight cache and, on a miss, issues a
// fresh OPTIONS round-trip. It returns false when the fetch must become a
// network error.
func (f *Fetcher) preflightAuthorized(ctx context.Context, req *Request) bool {
	key := preflightKey(req)
	method := req.Method()
	headers := unsafeRequestHeaders(req)

	if f.cache.MatchMethod(key, method) && allHeadersMatch(f.cache, key, headers) {
		f.log.Trace().Str("url", key.URL).Msg("Preflight satisfied from cache")
		return true
	}
	return f.corsPreflightFetch(ctx, req, key, method, headers)
}

func allHeadersMatch(cache *corscache.Cache, key corscache.Key, headers []string) bool {
	for _, h := range headers {
		if !cache.MatchHeader(key, h) {
			return false
		}
	}
	return true
}

// corsPreflightFetch issues the OPTIONS request and validates the
// authorization it answers with. Any mismatch fails the whole fetch; there
// is no partial fallback.
func (f *Fetcher) corsPreflightFetch(ctx context.Context, req *Request, key corscache.Key, method string, unsafeHeaders []string) bool {
	headers := http.Header{}
	headers.Set("Origin", req.Origin.String())
	headers.Set("Access-Control-Request-Method", method)
	headers.Set("Access-Control-Request-Headers", strings.Join(unsafeHeaders, ","))
	if referer := refererFor(req); referer != "" {
		headers.Set("Referer", referer)
	}

	wire, err := f.transport.RoundTrip(ctx, http.MethodOptions, req.URL(), headers, nil)
	if err != nil {
		f.log.Debug().Err(err).Str("url", key.URL).Msg("Preflight transport failure")
		return false
	}
	defer wire.Body.Close()
	io.Copy(io.Discard, wire.Body)

	if wire.StatusCode < 200 || wire.StatusCode > 299 {
		return false
	}
	if !corsCheck(req, wire.Headers) {
		return false
	}

	allowedMethods := headerTokens(wire.Headers, "Access-Control-Allow-Methods")
	allowedHeaders := headerTokens(wire.Headers, "Access-Control-Allow-Headers")

	if !methodAllowed(method, allowedMethods) {
		f.log.Debug().Str("method", method).Str("url", key.URL).Msg("Preflight rejected method")
		return false
	}
	for _, h := range unsafeHeaders {
		if !tokenListed(h, allowedHeaders) {
			f.log.Debug().Str("header", h).Str("url", key.URL).Msg("Preflight rejected header")
			return false
		}
	}

	if maxAge := wire.Headers.Get("Access-Control-Max-Age"); maxAge != "" {
		if seconds, err := strconv.Atoi(maxAge); err == nil && seconds > 0 {
			f.cache.Insert(key, time.Duration(seconds)*time.Second, allowedMethods, allowedHeaders)
		}
	}
	return true
}

func methodAllowed(method string, allowed []string) bool {
	if isCORSSafelistedMethod(method) {
		return true
	}
	for _, m := range allowed {
		if m == method || m == "*" {
			return true
		}
	}
	return false
}

func tokenListed(token string, list []string) bool {
	for _, t := range list {
		if strings.EqualFold(t, token) || t == "*" {
			return true
		}
	}
	return false
}

func headerTokens(h http.Header, name string) []string {
	var tokens []string
	for _, list := range h.Values(name) {
		for _, t := range strings.Split(list, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	return tokens
}

// corsCheck validates Access-Control-Allow-Origin on a cross-origin
// response: "*" passes for requests without credentials, otherwise the
// value must equal the request origin's serialization (opaque origins
// serialize to "null" and never match).
func corsCheck(req *Request, headers http.Header) bool {
	allowed := headers.Get("Access-Control-Allow-Origin")
	if allowed == "*" {
		return true
	}
	return !req.Origin.IsOpaque() && allowed == req.Origin.String()
}
