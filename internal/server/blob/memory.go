package blob

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	etag        string
	contentType string
}

// MemoryStore is an in-process Store with the same conditional-write
// semantics as S3. Presigned URLs use the memory:// scheme and are only
// meaningful to tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	version uint64
	bucket  string
	now     func() time.Time
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		bucket:  bucket,
		now:     time.Now,
	}
}

func (m *MemoryStore) EnsureBucket(context.Context) error { return nil }

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.objects[key]
	if opts.IfNoneMatch && ok {
		return "", fmt.Errorf("%w: %s exists", ErrPreconditionFailed, key)
	}
	if opts.IfMatch != "" && (!ok || cur.etag != opts.IfMatch) {
		return "", fmt.Errorf("%w: %s etag mismatch", ErrPreconditionFailed, key)
	}

	m.version++
	etag := fmt.Sprintf("\"%d\"", m.version)
	m.objects[key] = memObject{
		data:        append([]byte(nil), data...),
		etag:        etag,
		contentType: opts.ContentType,
	}

	return etag, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return append([]byte(nil), obj.data...), obj.etag, nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	u := url.URL{
		Scheme:   "memory",
		Host:     m.bucket,
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {fmt.Sprint(m.now().Add(ttl).Unix())}}.Encode(),
	}
	return u.String(), nil
}

// Keys returns the stored keys. Test helper.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// ContentType returns the content type recorded for key.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}
