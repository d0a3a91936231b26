package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	webfetch "github.com/web-fetch/web-fetch"
)

type eofSignal struct {
	webfetch.NopTarget
	done chan struct{}
}

func (s *eofSignal) ProcessResponseEOF(*webfetch.Response) {
	close(s.done)
}

func TestBlockingTargetFinishesLoadOnEOF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("var x = 1;"))
	}))
	defer server.Close()

	u := mustParse(t, server.URL+"/a.js")
	doc := New(nil)
	signal := &eofSignal{done: make(chan struct{})}
	target := BlockingTarget(doc, Load{Kind: KindScript, URL: u}, signal)

	if !doc.IsBlocked() {
		t.Fatal("Load not registered before the fetch")
	}

	req := webfetch.NewRequest(u, webfetch.OriginFromURL(u))
	webfetch.New(webfetch.Config{}).FetchAsync(context.Background(), req, target)
	<-signal.done

	if doc.IsBlocked() {
		t.Fatal("Load still blocking after the fetch finished")
	}
}
