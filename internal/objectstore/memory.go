package objectstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used in tests in place of
// go-sqlmock (the teacher's DB-mock library does not apply here: spec
// §6 has no SQL surface), matching SPEC_FULL.md's stated test-tooling
// approach for this package.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	mtimes  map[string]int64
	seq     int64
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}, mtimes: map[string]int64{}}
}

func (s *MemoryStore) touch(key string) {
	s.seq++
	s.mtimes[key] = s.seq
}

func (s *MemoryStore) Put(ctx context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(body))
	copy(cp, body)
	s.objects[key] = cp
	s.touch(key)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, &ErrNotExist{Key: key}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) GetParsed(ctx context.Context, key string) (any, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if _, ok := err.(*ErrNotExist); ok {
			return parseByExtension(key, nil)
		}
		return nil, err
	}
	return parseByExtension(key, data)
}

func (s *MemoryStore) Append(ctx context.Context, key string, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append(s.objects[key], []byte(line+"\n")...)
	s.touch(key)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.mtimes, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return s.mtimes[keys[i]] < s.mtimes[keys[j]] })
	return keys, nil
}

func (s *MemoryStore) FindByPrefix(ctx context.Context, prefix string) ([]string, error) {
	all, _ := s.List(ctx)
	var out []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindByExtension(ctx context.Context, ext string) ([]string, error) {
	all, _ := s.List(ctx)
	var out []string
	for _, k := range all {
		if strings.HasSuffix(k, ext) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if data, err := s.Get(ctx, k); err == nil {
			out[k] = data
		}
	}
	return out, nil
}

func (s *MemoryStore) EnsureBucket(ctx context.Context) error { return nil }

func (s *MemoryStore) BucketExists(ctx context.Context) (bool, error) { return true, nil }

func (s *MemoryStore) IsHealthy(ctx context.Context) bool { return true }

func (s *MemoryStore) Path(key string) string { return "memory://" + key }
