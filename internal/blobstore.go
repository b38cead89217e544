package internal

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	BlobURLPrefix                        = "blob:"
	DefaultBlobTTL         time.Duration = time.Hour
	DefaultJanitorInterval time.Duration = time.Minute
)

func NewBlobStore(l *StdLog, ttl time.Duration) *BlobStore {
	if ttl <= 0 {
		ttl = DefaultBlobTTL
	}
	c := &BlobStore{
		ttl:      ttl,
		entities: map[string]blobEntity{},
		mu:       sync.RWMutex{},
		l:        l,
	}
	runJanitor(c, DefaultJanitorInterval)
	return c
}

// BlobStore keeps encoded bytes behind temporary "blob:<uuid>" references until they are
// revoked or their TTL runs out.
type BlobStore struct {
	entities map[string]blobEntity
	ttl      time.Duration
	mu       sync.RWMutex
	j        *janitor
	l        *StdLog
}

type blobEntity struct {
	data      []byte
	mime      string
	expiredAt int64
	pinned    bool
}

func (b *BlobStore) Create(data []byte, mime string) string {
	return b.create(data, mime, false)
}

// CreatePinned registers a blob the janitor never expires. The owner must Revoke it.
func (b *BlobStore) CreatePinned(data []byte, mime string) string {
	return b.create(data, mime, true)
}

func (b *BlobStore) create(data []byte, mime string, pinned bool) string {
	url := BlobURLPrefix + uuid.New().String()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entities[url] = blobEntity{
		data:      data,
		mime:      mime,
		expiredAt: time.Now().Add(b.ttl).UnixNano(),
		pinned:    pinned,
	}
	liveBlobs.Inc()
	return url
}

func (b *BlobStore) Get(url string) ([]byte, string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	val, ok := b.entities[url]
	if !ok {
		return nil, "", false
	}

	return val.data, val.mime, true
}

// Revoke releases url. Revoking an unknown url is a no-op.
func (b *BlobStore) Revoke(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clearEntity(url)
}

func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entities)
}

func (b *BlobStore) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.entities {
		b.clearEntity(k)
	}
	stopJanitor(b)
}

func (b *BlobStore) DeleteExpired() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UnixNano()
	for k, v := range b.entities {
		if !v.pinned && now > v.expiredAt {
			b.l.Debug("blob %s expired", k)
			b.clearEntity(k)
		}
	}
}

func (b *BlobStore) clearEntity(key string) bool {
	if _, ok := b.entities[key]; !ok {
		return false
	}
	delete(b.entities, key)
	liveBlobs.Dec()
	return true
}

// BlobID strips the scheme of a blob reference for use in HTTP paths.
func BlobID(url string) string {
	return strings.TrimPrefix(url, BlobURLPrefix)
}

type janitor struct {
	Interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func (j *janitor) Run(c interface{ DeleteExpired() }) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-j.stop:
			return
		}
	}
}

func (j *janitor) Stop() {
	j.once.Do(func() { close(j.stop) })
}

func newJanitor(interval time.Duration) *janitor {
	return &janitor{
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

func stopJanitor(c *BlobStore) {
	c.j.Stop()
}

func runJanitor(c *BlobStore, ci time.Duration) {
	j := newJanitor(ci)
	c.j = j
	go j.Run(c)
}
