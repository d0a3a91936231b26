// Package corscache remembers prior CORS preflight authorizations so that
// repeated requests against the same (origin, url, credentials) key can skip
// the OPTIONS round-trip until the authorization expires.
package corscache

import (
	"strings"
	"time"
)

const keySeparator = "\t"

// Key identifies an authorization. Lookups are scoped by origin, URL and
// credentials mode only; the method set used to obtain an entry is
// deliberately not part of the key, so an entry may satisfy a request other
// than the one that created it.
type Key struct {
	Origin      string
	URL         string
	Credentials bool
}

func (k Key) id() string {
	cred := "anon"
	if k.Credentials {
		cred = "cred"
	}
	return k.Origin + keySeparator + k.URL + keySeparator + cred
}

// Entry is one cached authorization: the methods and headers a preflight
// response allowed, valid until Expires.
type Entry struct {
	Methods []string
	Headers []string
	Expires time.Time
}

func (e Entry) expired(now time.Time) bool {
	return now.After(e.Expires)
}

func (e Entry) matchMethod(method string) bool {
	for _, m := range e.Methods {
		if m == method || m == "*" {
			return true
		}
	}
	return false
}

func (e Entry) matchHeader(header string) bool {
	for _, h := range e.Headers {
		if strings.EqualFold(h, header) || h == "*" {
			return true
		}
	}
	return false
}

// Cache is the preflight cache shared across concurrently executing
// fetches. The zero value is not usable; use New or NewWithStore.
type Cache struct {
	store Store
}

// New returns a cache backed by the in-memory TTL store.
func New() *Cache {
	return NewWithStore(NewMemStore())
}

// NewWithStore returns a cache over the given store.
func NewWithStore(s Store) *Cache {
	return &Cache{store: s}
}

// MatchMethod reports whether an unexpired authorization for key covers
// method.
func (c *Cache) MatchMethod(key Key, method string) bool {
	entry, ok := c.lookup(key)
	return ok && entry.matchMethod(method)
}

// MatchHeader reports whether an unexpired authorization for key covers the
// named request header.
func (c *Cache) MatchHeader(key Key, header string) bool {
	entry, ok := c.lookup(key)
	return ok && entry.matchHeader(header)
}

func (c *Cache) lookup(key Key) (Entry, bool) {
	entry, ok := c.store.Get(key.id())
	if !ok {
		return Entry{}, false
	}
	if entry.expired(time.Now()) {
		c.store.Purge(key.id())
		return Entry{}, false
	}
	return entry, true
}

// Insert adds or refreshes the authorization for key. Inserts are additive:
// methods and headers from a still-valid existing entry are merged in, since
// entries are idempotent authorizations and a later preflight never revokes
// an earlier one within its lifetime.
func (c *Cache) Insert(key Key, maxAge time.Duration, methods, headers []string) {
	entry := Entry{
		Methods: append([]string(nil), methods...),
		Headers: append([]string(nil), headers...),
		Expires: time.Now().Add(maxAge),
	}
	if existing, ok := c.lookup(key); ok {
		entry.Methods = mergeTokens(entry.Methods, existing.Methods)
		entry.Headers = mergeTokens(entry.Headers, existing.Headers)
	}
	c.store.Put(key.id(), entry)
}

func mergeTokens(dst, extra []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, t := range dst {
		seen[strings.ToLower(t)] = true
	}
	for _, t := range extra {
		if !seen[strings.ToLower(t)] {
			dst = append(dst, t)
			seen[strings.ToLower(t)] = true
		}
	}
	return dst
}
