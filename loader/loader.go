// Package loader tracks the resource loads that keep a document's load
// event from firing. A document registers each blocking load before starting
// its fetch and finishes it when the fetch delivers its final notification.
package loader

import (
	"fmt"
	"net/url"
	"sync"

	webfetch "github.com/web-fetch/web-fetch"
)

// Kind classifies a blocking load.
type Kind int

const (
	KindPageSource Kind = iota
	KindScript
	KindStylesheet
	KindImage
	KindMedia
	KindSubframe
)

func (k Kind) String() string {
	switch k {
	case KindPageSource:
		return "page-source"
	case KindScript:
		return "script"
	case KindStylesheet:
		return "stylesheet"
	case KindImage:
		return "image"
	case KindMedia:
		return "media"
	case KindSubframe:
		return "subframe"
	}
	return "unknown"
}

// Load is one pending resource load.
type Load struct {
	Kind Kind
	URL  *url.URL
}

// DocumentLoader tracks the loads blocking one document. Safe for
// concurrent use.
type DocumentLoader struct {
	mu            sync.Mutex
	blocking      []Load
	eventsInhibit bool
}

// New creates a loader for a document fetched from initial. The page source
// itself blocks the load event until it finishes.
func New(initial *url.URL) *DocumentLoader {
	loader := &DocumentLoader{}
	if initial != nil {
		loader.blocking = append(loader.blocking, Load{Kind: KindPageSource, URL: initial})
	}
	return loader
}

// AddBlockingLoad registers a load that must finish before the document is
// considered loaded.
func (d *DocumentLoader) AddBlockingLoad(load Load) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocking = append(d.blocking, load)
}

// FinishLoad removes a previously registered load. Finishing a load that was
// never registered is an error.
func (d *DocumentLoader) FinishLoad(load Load) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, pending := range d.blocking {
		if pending.Kind == load.Kind && sameURL(pending.URL, load.URL) {
			d.blocking = append(d.blocking[:i], d.blocking[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("finish of unknown load %s %s", load.Kind, load.URL)
}

// IsBlocked reports whether any load still blocks the document.
func (d *DocumentLoader) IsBlocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.blocking) > 0
}

// InhibitEvents stops the document from firing further load events, used
// when the document is being torn down.
func (d *DocumentLoader) InhibitEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.eventsInhibit = true
}

func (d *DocumentLoader) EventsInhibited() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eventsInhibit
}

func sameURL(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// Blocker holds a single load open until Terminate is called. Terminate is
// idempotent, so teardown paths may race with normal completion.
type Blocker struct {
	mu     sync.Mutex
	loader *DocumentLoader
	load   *Load
}

func NewBlocker(loader *DocumentLoader, load Load) *Blocker {
	loader.AddBlockingLoad(load)
	return &Blocker{loader: loader, load: &load}
}

func (b *Blocker) Terminate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.load != nil {
		b.loader.FinishLoad(*b.load)
		b.load = nil
	}
}

// blockingTarget finishes its load when the wrapped fetch completes.
type blockingTarget struct {
	inner   webfetch.Target
	blocker *Blocker
}

// BlockingTarget wraps inner so that the given load is finished on loader as
// soon as the fetch reaches ProcessResponseEOF.
func BlockingTarget(loader *DocumentLoader, load Load, inner webfetch.Target) webfetch.Target {
	return &blockingTarget{inner: inner, blocker: NewBlocker(loader, load)}
}

func (t *blockingTarget) ProcessRequestBody(req *webfetch.Request) { t.inner.ProcessRequestBody(req) }
func (t *blockingTarget) ProcessRequestEOF(req *webfetch.Request)  { t.inner.ProcessRequestEOF(req) }
func (t *blockingTarget) ProcessResponse(res *webfetch.Response)   { t.inner.ProcessResponse(res) }
func (t *blockingTarget) ProcessResponseChunk(chunk []byte)        { t.inner.ProcessResponseChunk(chunk) }

func (t *blockingTarget) ProcessResponseEOF(res *webfetch.Response) {
	t.inner.ProcessResponseEOF(res)
	t.blocker.Terminate()
}
