package webfetch

import (
	"net/http"
	"strings"
)

// forbiddenResponseHeaders never reach callers, regardless of filter.
var forbiddenResponseHeaders = []string{"Set-Cookie", "Set-Cookie2"}

// corsSafelistedResponseHeaders pass a CORS filter without being exposed
// explicitly.
var corsSafelistedResponseHeaders = []string{
	"Cache-Control",
	"Content-Language",
	"Content-Type",
	"Expires",
	"Last-Modified",
	"Pragma",
}

// filterResponse wraps res in a filtered view tagged with t. The inner
// response is never mutated; basic and CORS views share its body storage,
// opaque views suppress everything.
func filterResponse(res *Response, t ResponseType) *Response {
	switch t {
	case TypeBasic:
		return &Response{
			Type:       TypeBasic,
			StatusCode: res.StatusCode,
			StatusText: res.StatusText,
			Headers:    basicHeaderFilter(res.Headers),
			Body:       res.Body,
			URL:        res.URL,
			URLList:    res.URLList,
			CacheState: res.CacheState,
			Internal:   res,
		}
	case TypeCORS:
		return &Response{
			Type:       TypeCORS,
			StatusCode: res.StatusCode,
			StatusText: res.StatusText,
			Headers:    corsHeaderFilter(res.Headers),
			Body:       res.Body,
			URL:        res.URL,
			URLList:    res.URLList,
			CacheState: res.CacheState,
			Internal:   res,
		}
	case TypeOpaque:
		return &Response{
			Type:       TypeOpaque,
			Headers:    http.Header{},
			Body:       NewResponseBody(),
			CacheState: CacheNone,
		}
	case TypeOpaqueRedirect:
		return &Response{
			Type:       TypeOpaqueRedirect,
			Headers:    http.Header{},
			Body:       NewResponseBody(),
			CacheState: CacheNone,
			Internal:   res,
		}
	}
	return res
}

// basicHeaderFilter passes everything except forbidden response headers.
func basicHeaderFilter(src http.Header) http.Header {
	dst := src.Clone()
	for _, name := range forbiddenResponseHeaders {
		dst.Del(name)
	}
	return dst
}

// corsHeaderFilter passes the CORS-safelisted response headers plus any
// header named by Access-Control-Expose-Headers. Set-Cookie and Set-Cookie2
// are stripped even when explicitly exposed.
func corsHeaderFilter(src http.Header) http.Header {
	allowed := make(map[string]bool, len(corsSafelistedResponseHeaders))
	for _, name := range corsSafelistedResponseHeaders {
		allowed[strings.ToLower(name)] = true
	}
	for _, list := range src.Values("Access-Control-Expose-Headers") {
		for _, name := range strings.Split(list, ",") {
			allowed[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}
	for _, name := range forbiddenResponseHeaders {
		delete(allowed, strings.ToLower(name))
	}

	dst := http.Header{}
	for name, values := range src {
		if !allowed[strings.ToLower(name)] {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
	return dst
}
