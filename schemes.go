package webfetch

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// isLocalScheme reports whether a URL on this scheme is resolved without
// touching the network.
func isLocalScheme(scheme string) bool {
	switch scheme {
	case "about", "data", "file":
		return true
	}
	return false
}

// schemeFetch resolves local schemes synchronously, short-circuiting all
// network logic. Anything unresolvable is a network error.
func (f *Fetcher) schemeFetch(req *Request) *Response {
	u := req.URL()
	switch u.Scheme {
	case "about":
		if u.Opaque == "blank" {
			res := NewResponse()
			res.StatusCode = http.StatusOK
			res.StatusText = "OK"
			res.URL = u
			res.Body.Finish()
			return res
		}
	case "data":
		mediaType, data, err := parseDataURL(u)
		if err != nil {
			f.log.Debug().Err(err).Str("url", u.String()).Msg("Could not decode data URL")
			return NetworkError()
		}
		res := NewResponse()
		res.StatusCode = http.StatusOK
		res.StatusText = "OK"
		res.URL = u
		res.Headers.Set("Content-Type", mediaType)
		res.Body.Append(data)
		res.Body.Finish()
		return res
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			f.log.Debug().Err(err).Str("path", u.Path).Msg("Could not read file")
			return NetworkError()
		}
		res := NewResponse()
		res.StatusCode = http.StatusOK
		res.StatusText = "OK"
		res.URL = u
		res.Headers.Set("Content-Type", http.DetectContentType(data))
		res.Body.Append(data)
		res.Body.Finish()
		return res
	}
	return NetworkError()
}

// parseDataURL splits a data: URL into its media type and decoded payload
// per RFC 2397. The media type defaults to text/plain;charset=US-ASCII.
func parseDataURL(u *url.URL) (string, []byte, error) {
	raw := u.Opaque
	if raw == "" {
		raw = strings.TrimPrefix(u.String(), "data:")
	}
	meta, payload, found := strings.Cut(raw, ",")
	if !found {
		return "", nil, fmt.Errorf("data URL without comma: %s", u)
	}

	isBase64 := false
	if rest, ok := strings.CutSuffix(meta, ";base64"); ok {
		isBase64 = true
		meta = rest
	}
	mediaType := meta
	if mediaType == "" {
		mediaType = "text/plain;charset=US-ASCII"
	} else if strings.HasPrefix(mediaType, ";") {
		mediaType = "text/plain" + mediaType
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("undecodable data URL payload: %w", err)
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(decoded)
		if err != nil {
			return "", nil, fmt.Errorf("invalid base64 in data URL: %w", err)
		}
		return mediaType, data, nil
	}
	return mediaType, []byte(decoded), nil
}
