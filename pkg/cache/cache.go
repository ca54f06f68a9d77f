package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the key-value store used for rolling history and small caches.
// Values are JSON encoded; list elements are stored individually.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	// AppendToList pushes value to the tail of the list at key, keeps at most
	// maxLen newest elements (0 means unbounded) and refreshes the expiry.
	AppendToList(ctx context.Context, key string, value interface{}, maxLen int, expiration time.Duration) error
	// GetList decodes the whole list at key into dest, which must point to a slice.
	GetList(ctx context.Context, key string, dest interface{}) error
	Close() error
}

func encode(value interface{}) ([]byte, error) {
	if b, ok := value.([]byte); ok {
		return b, nil
	}
	return json.Marshal(value)
}

func decode(data []byte, dest interface{}) error {
	if strPtr, ok := dest.(*string); ok {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*strPtr = s
			return nil
		}
		*strPtr = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

// decodeList joins raw JSON elements into an array and decodes it into dest.
func decodeList(items []string, dest interface{}) error {
	var b strings.Builder
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(item)
	}
	b.WriteByte(']')
	return json.Unmarshal([]byte(b.String()), dest)
}
