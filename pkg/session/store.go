package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ─── Memory ──────────────────────────────────────────────────────────────────

// MemoryStore keeps records in process memory. TTLs are enforced by the
// Manager, not the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// ─── File ────────────────────────────────────────────────────────────────────

// FileStore keeps one JSON file per key so sessions survive a restart on a
// single-node install.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(f.dir, name+".json")
}

func (f *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// Save writes through a temp file and rename so readers never see a torn
// record.
func (f *FileStore) Save(_ context.Context, key string, data []byte, _ time.Duration) error {
	tmp, err := os.CreateTemp(f.dir, ".session-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ─── Redis ───────────────────────────────────────────────────────────────────

// RedisStore keeps records in Redis with a native TTL.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "mesa:"}
}

func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *RedisStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+key, data, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.prefix+key).Err()
}

// ─── Sealed ──────────────────────────────────────────────────────────────────

// Sealer encrypts records before they reach a store. *crypt.Box is one.
type Sealer interface {
	Seal(data []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// SealedStore encrypts every record written to Store. A record that does
// not open under the current key is deleted and reported as not found.
type SealedStore struct {
	Store
	box Sealer
}

func NewSealedStore(inner Store, box Sealer) *SealedStore {
	return &SealedStore{Store: inner, box: box}
}

func (s *SealedStore) Load(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.Store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.box.Open(sealed)
	if err != nil {
		_ = s.Store.Delete(ctx, key)
		return nil, ErrNotFound
	}
	return plain, nil
}

func (s *SealedStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	sealed, err := s.box.Seal(data)
	if err != nil {
		return err
	}
	return s.Store.Save(ctx, key, sealed, ttl)
}
