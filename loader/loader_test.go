package loader

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestNewLoaderBlocksOnPageSource(t *testing.T) {
	u := mustParse(t, "http://example.com/")
	loader := New(u)

	if !loader.IsBlocked() {
		t.Fatal("New loader should be blocked by the page source")
	}
	if err := loader.FinishLoad(Load{Kind: KindPageSource, URL: u}); err != nil {
		t.Fatal(err)
	}
	if loader.IsBlocked() {
		t.Fatal("Loader still blocked after the page source finished")
	}
}

func TestFinishUnknownLoadFails(t *testing.T) {
	loader := New(nil)
	err := loader.FinishLoad(Load{Kind: KindImage, URL: mustParse(t, "http://example.com/a.png")})
	if err == nil {
		t.Fatal("Finishing an unregistered load should fail")
	}
}

func TestLoadsBlockUntilAllFinish(t *testing.T) {
	loader := New(nil)
	script := Load{Kind: KindScript, URL: mustParse(t, "http://example.com/a.js")}
	style := Load{Kind: KindStylesheet, URL: mustParse(t, "http://example.com/a.css")}

	loader.AddBlockingLoad(script)
	loader.AddBlockingLoad(style)

	if err := loader.FinishLoad(script); err != nil {
		t.Fatal(err)
	}
	if !loader.IsBlocked() {
		t.Fatal("Loader unblocked with a stylesheet still pending")
	}
	if err := loader.FinishLoad(style); err != nil {
		t.Fatal(err)
	}
	if loader.IsBlocked() {
		t.Fatal("Loader still blocked with nothing pending")
	}
}

func TestBlockerTerminateIsIdempotent(t *testing.T) {
	loader := New(nil)
	blocker := NewBlocker(loader, Load{Kind: KindImage, URL: mustParse(t, "http://example.com/a.png")})

	if !loader.IsBlocked() {
		t.Fatal("Blocker did not register its load")
	}
	blocker.Terminate()
	blocker.Terminate()
	if loader.IsBlocked() {
		t.Fatal("Loader still blocked after terminate")
	}
}

func TestInhibitEvents(t *testing.T) {
	loader := New(nil)
	if loader.EventsInhibited() {
		t.Fatal("Events inhibited on a fresh loader")
	}
	loader.InhibitEvents()
	if !loader.EventsInhibited() {
		t.Fatal("Events not inhibited after InhibitEvents")
	}
}
