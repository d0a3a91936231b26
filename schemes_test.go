package webfetch

import (
	"net/url"
	"testing"
)

func TestParseDataURL(t *testing.T) {
	cases := []struct {
		name      string
		url       string
		mediaType string
		body      string
		wantErr   bool
	}{
		{"plain", "data:text/html,<p>hi</p>", "text/html", "<p>hi</p>", false},
		{"default media type", "data:,hello", "text/plain;charset=US-ASCII", "hello", false},
		{"charset only", "data:;charset=utf-8,hello", "text/plain;charset=utf-8", "hello", false},
		{"base64", "data:text/plain;base64,aGVsbG8=", "text/plain", "hello", false},
		{"percent encoded", "data:,hello%20world", "text/plain;charset=US-ASCII", "hello world", false},
		{"no comma", "data:text/plain", "", "", true},
		{"bad base64", "data:;base64,!!!", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := url.Parse(tc.url)
			if err != nil {
				t.Fatal(err)
			}
			mediaType, body, err := parseDataURL(u)
			if tc.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if mediaType != tc.mediaType {
				t.Fatalf("Media type is %s", mediaType)
			}
			if string(body) != tc.body {
				t.Fatalf("Body is %s", body)
			}
		})
	}
}

func TestIsLocalScheme(t *testing.T) {
	for _, s := range []string{"about", "data", "file"} {
		if !isLocalScheme(s) {
			t.Fatalf("%s should be local", s)
		}
	}
	for _, s := range []string{"http", "https", "ftp", ""} {
		if isLocalScheme(s) {
			t.Fatalf("%s should not be local", s)
		}
	}
}
