package corscache

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jellydator/ttlcache/v3"
)

// Store holds serialized authorizations keyed by an opaque id.
//
// Implementations must be thread-safe!
type Store interface {
	// Get returns the entry for the given id, if present. Expired entries
	// may still be returned; the cache treats them as absent and purges
	// them.
	Get(id string) (Entry, bool)
	// Put stores the entry under the given id, replacing any previous one.
	Put(id string, e Entry)
	// Purge removes the entry for the given id.
	Purge(id string)
}

// MemStore is the default in-process store, a TTL cache that drops entries
// on their expiry without any further eviction policy.
type MemStore struct {
	cache *ttlcache.Cache[string, Entry]
}

func NewMemStore() *MemStore {
	cache := ttlcache.New[string, Entry](
		ttlcache.WithDisableTouchOnHit[string, Entry](),
	)
	go cache.Start()
	return &MemStore{cache: cache}
}

func (m *MemStore) Get(id string) (Entry, bool) {
	item := m.cache.Get(id)
	if item == nil {
		return Entry{}, false
	}
	return item.Value(), true
}

func (m *MemStore) Put(id string, e Entry) {
	ttl := time.Until(e.Expires)
	if ttl <= 0 {
		m.cache.Delete(id)
		return
	}
	m.cache.Set(id, e, ttl)
}

func (m *MemStore) Purge(id string) {
	m.cache.Delete(id)
}

// SQLiteStore keeps authorizations in a sqlite database. With an empty
// filename it opens an in-memory database, so nothing outlives the process
// unless a caller explicitly asks for a file.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

func NewSQLiteStore(filename string) (*SQLiteStore, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS preflight (
		id TEXT PRIMARY KEY,
		methods TEXT,
		headers TEXT,
		expires INTEGER
	)`)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec("CREATE INDEX IF NOT EXISTS preflight_expires_idx ON preflight (expires)")
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLiteStore) Get(id string) (Entry, bool) {
	var methods, headers string
	var expires int64
	err := s.db.QueryRow(
		"SELECT methods, headers, expires FROM preflight WHERE id = ?", id,
	).Scan(&methods, &headers, &expires)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Methods: splitTokens(methods),
		Headers: splitTokens(headers),
		Expires: time.UnixMilli(expires),
	}, true
}

func (s *SQLiteStore) Put(id string, e Entry) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	s.db.Exec(
		"INSERT OR REPLACE INTO preflight (id, methods, headers, expires) VALUES (?, ?, ?, ?)",
		id, strings.Join(e.Methods, ","), strings.Join(e.Headers, ","), e.Expires.UnixMilli(),
	)
}

func (s *SQLiteStore) Purge(id string) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	s.db.Exec("DELETE FROM preflight WHERE id = ?", id)
}

func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
