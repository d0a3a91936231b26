package webfetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WireResponse is one hop's answer from the scheme-transport layer:
// status line, headers, and an unread body stream.
type WireResponse struct {
	StatusCode int
	StatusText string
	Headers    http.Header
	Body       io.ReadCloser
}

// Transport issues a single (method, url, headers, body) exchange. It must
// not follow redirects; the orchestrator owns redirect handling. Failures
// surface as a single error, which the orchestrator downgrades to a
// network-error response.
type Transport interface {
	RoundTrip(ctx context.Context, method string, u *url.URL, headers http.Header, body []byte) (*WireResponse, error)
}

type netTransport struct {
	client *http.Client
}

func newNetTransport() *netTransport {
	return &netTransport{
		client: &http.Client{
			// do not follow redirects
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (t *netTransport) RoundTrip(ctx context.Context, method string, u *url.URL, headers http.Header, body []byte) (*WireResponse, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	// as per https://www.rfc-editor.org/rfc/rfc9110#section-6.6.1-8
	if res.Header.Get("Date") == "" {
		res.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	return &WireResponse{
		StatusCode: res.StatusCode,
		StatusText: statusText(res.Status, res.StatusCode),
		Headers:    res.Header,
		Body:       res.Body,
	}, nil
}

// statusText extracts the reason phrase from a status line like "200 OK".
func statusText(status string, code int) string {
	if i := strings.IndexByte(status, ' '); i >= 0 && i+1 < len(status) {
		return status[i+1:]
	}
	return http.StatusText(code)
}
