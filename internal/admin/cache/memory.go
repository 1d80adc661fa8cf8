package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize caps the number of keys held by a Memory cache.
const DefaultMemorySize = 100_000

// Memory is a process-local cache for single-replica deployments and tests.
// Sessions stored here are invisible to other replicas.
//
// Only keys with a TTL live in the LRU and can be evicted. Keys without one,
// such as session versions, are kept until deleted: losing a version would
// reset it and revive tokens an earlier LogoutAll revoked.
type Memory struct {
	mu      sync.Mutex
	lru     *lru.Cache[string, memoryEntry]
	durable map[string]string
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemory returns a Memory cache holding at most size expiring keys. Least
// recently used ones are evicted first once full.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	c, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: c, durable: make(map[string]string), now: time.Now}, nil
}

// SetClock overrides the time source, for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// load returns the live value of key and drops it if expired. Callers hold m.mu.
func (m *Memory) load(key string) (memoryEntry, bool) {
	if v, ok := m.durable[key]; ok {
		return memoryEntry{value: v}, true
	}
	e, ok := m.lru.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		m.lru.Remove(key)
		return memoryEntry{}, false
	}
	return e, true
}

// store writes e, choosing the backing map by whether it expires. Callers
// hold m.mu.
func (m *Memory) store(key string, e memoryEntry) {
	if e.expiresAt.IsZero() {
		m.lru.Remove(key)
		m.durable[key] = e.value
		return
	}
	delete(m.durable, key)
	m.lru.Add(key, e)
}

func (m *Memory) remove(key string) {
	delete(m.durable, key)
	m.lru.Remove(key)
}

func (m *Memory) entry(value string, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	return e
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := ctxErr(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.load(key)
	if !ok {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(key, m.entry(value, ttl))
	return nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		m.remove(k)
	}
	return nil
}

func (m *Memory) Take(ctx context.Context, key string) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.load(key); !ok {
		return false, nil
	}
	m.remove(key)
	return true, nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.load(key); ok {
		return false, nil
	}
	m.store(key, m.entry(value, ttl))
	return true, nil
}

// Incr keeps the key's remaining TTL, like redis INCR.
func (m *Memory) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.load(key)
	var n int64
	if ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		n = parsed
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	m.store(key, e)
	return n, nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctxErr(ctx) }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
	clear(m.durable)
	return nil
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
