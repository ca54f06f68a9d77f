package cache

import (
	"context"
	"sync"
	"time"
)

const defaultExpiration = 7 * 24 * time.Hour

// MemoryItem stores a cached value or list with expiration.
type MemoryItem struct {
	Value    []byte
	List     []string
	ExpireAt time.Time
}

// MemoryCache implements Service using in-memory storage with LRU eviction.
type MemoryCache struct {
	data          map[string]*MemoryItem
	access        map[string]time.Time
	mutex         sync.Mutex
	maxSize       int
	now           func() time.Time
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

var _ Service = (*MemoryCache)(nil)

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
		Now:             time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:          make(map[string]*MemoryItem),
		access:        make(map[string]time.Time),
		maxSize:       cfg.MaxSize,
		now:           cfg.Now,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		done:          make(chan struct{}),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.put(key, &MemoryItem{Value: data, ExpireAt: mc.expireAt(expiration)})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	item, ok := mc.lookup(key)
	var data []byte
	if ok {
		data = item.Value
	}
	mc.mutex.Unlock()

	if !ok || data == nil {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		if _, ok := mc.lookup(key); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) AppendToList(_ context.Context, key string, value interface{}, maxLen int, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	item, ok := mc.lookup(key)
	if !ok {
		item = &MemoryItem{}
	}
	item.Value = nil
	item.List = append(item.List, string(data))
	if maxLen > 0 && len(item.List) > maxLen {
		item.List = append([]string(nil), item.List[len(item.List)-maxLen:]...)
	}
	item.ExpireAt = mc.expireAt(expiration)
	mc.put(key, item)
	return nil
}

func (mc *MemoryCache) GetList(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	var items []string
	if item, ok := mc.lookup(key); ok {
		items = append(items, item.List...)
	}
	mc.mutex.Unlock()

	return decodeList(items, dest)
}

// Len returns the number of live keys.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.cleanupTicker.Stop()
		close(mc.done)
	})
	return nil
}

// lookup returns a live item and refreshes its access time. Caller holds the mutex.
func (mc *MemoryCache) lookup(key string) (*MemoryItem, bool) {
	item, exists := mc.data[key]
	if !exists {
		return nil, false
	}
	if mc.now().After(item.ExpireAt) {
		delete(mc.data, key)
		delete(mc.access, key)
		return nil, false
	}
	mc.access[key] = mc.now()
	return item, true
}

func (mc *MemoryCache) put(key string, item *MemoryItem) {
	if _, exists := mc.data[key]; !exists && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	mc.data[key] = item
	mc.access[key] = mc.now()
}

func (mc *MemoryCache) expireAt(expiration time.Duration) time.Time {
	if expiration <= 0 {
		expiration = defaultExpiration
	}
	return mc.now().Add(expiration)
}

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, accessTime := range mc.access {
		if oldestKey == "" || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.cleanupTicker.C:
			mc.mutex.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if now.After(item.ExpireAt) {
					delete(mc.data, key)
					delete(mc.access, key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}
