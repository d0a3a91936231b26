package webfetch

import (
	"net/http"
	"net/url"
	"testing"
)

func TestRequestURLListStartsWithTarget(t *testing.T) {
	u, _ := url.Parse("http://example.com/page")
	req := NewRequest(u, OriginFromURL(u))

	if req.URL() != u {
		t.Fatal("Current URL is not the initial target")
	}
	if req.RedirectCount() != 0 {
		t.Fatalf("Redirect count is %d", req.RedirectCount())
	}
}

func TestRequestAppendURLAdvancesTarget(t *testing.T) {
	first, _ := url.Parse("http://example.com/a")
	second, _ := url.Parse("http://example.com/b")
	req := NewRequest(first, OriginFromURL(first))

	req.AppendURL(second)

	if req.URL() != second {
		t.Fatal("Current URL did not advance")
	}
	if req.RedirectCount() != 1 {
		t.Fatalf("Redirect count is %d", req.RedirectCount())
	}
	list := req.URLList()
	if len(list) != 2 || list[0] != first || list[1] != second {
		t.Fatalf("URL list is %v", list)
	}
}

func TestRequestDefaults(t *testing.T) {
	u, _ := url.Parse("http://example.com/")
	req := NewRequest(u, OriginFromURL(u))

	if req.Method() != http.MethodGet {
		t.Fatalf("Method is %s", req.Method())
	}
	if req.Mode != ModeNoCORS {
		t.Fatalf("Mode is %v", req.Mode)
	}
	if req.RedirectMode() != RedirectFollow {
		t.Fatalf("Redirect mode is %v", req.RedirectMode())
	}
	if req.PipelineID == "" {
		t.Fatal("Pipeline id missing")
	}
}

func TestOriginSameOrigin(t *testing.T) {
	base, _ := url.Parse("http://example.com/index.html")
	origin := OriginFromURL(base)

	same, _ := url.Parse("http://example.com:80/other.html")
	if !origin.SameOrigin(same) {
		t.Fatal("Default port should be same-origin")
	}
	for _, s := range []string{
		"https://example.com/",
		"http://example.com:8080/",
		"http://other.com/",
	} {
		u, _ := url.Parse(s)
		if origin.SameOrigin(u) {
			t.Fatalf("%s should be cross-origin", s)
		}
	}
}

func TestOpaqueOriginsNeverMatch(t *testing.T) {
	a := OpaqueOrigin()
	b := OpaqueOrigin()

	if a.String() != "null" || b.String() != "null" {
		t.Fatal("Opaque origins should serialize to null")
	}
	u, _ := url.Parse("http://example.com/")
	if a.SameOrigin(u) {
		t.Fatal("Opaque origin matched a URL")
	}
	if a == b {
		t.Fatal("Two opaque origins compared equal")
	}
}

func TestOriginFromNonHierarchicalURLIsOpaque(t *testing.T) {
	for _, s := range []string{"data:text/plain,x", "about:blank", "file:///tmp/x"} {
		u, _ := url.Parse(s)
		if !OriginFromURL(u).IsOpaque() {
			t.Fatalf("Origin of %s is not opaque", s)
		}
	}
}
