package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	meta Object
	data []byte
}

// MemoryStore keeps objects in process memory. It backs local development
// when no MongoDB URI is configured, and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	buckets  map[string]map[string]memObject
	failures map[string]error
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets:  make(map[string]map[string]memObject),
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// FailBucket makes every operation on bucket return err. A nil err clears it.
func (s *MemoryStore) FailBucket(bucket string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, bucket)
		return
	}
	s.failures[bucket] = err
}

// Put stores body under bucket/objectPath.
func (s *MemoryStore) Put(_ context.Context, bucket, objectPath, contentType string, body io.Reader) (*Object, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[bucket]; err != nil {
		return nil, err
	}
	now := s.now().UTC()
	meta := Object{
		Name:        p[strings.LastIndex(p, "/")+1:],
		Path:        p,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]memObject)
	}
	s.buckets[bucket][p] = memObject{meta: meta, data: data}
	return &meta, nil
}

// List returns objects whose path starts with prefix, ordered by name.
func (s *MemoryStore) List(_ context.Context, bucket, prefix string, opts ListOptions) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[bucket]; err != nil {
		return nil, err
	}

	var all []Object
	for p, obj := range s.buckets[bucket] {
		if strings.HasPrefix(p, prefix) {
			all = append(all, obj.meta)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if opts.Order == SortDesc {
			return all[i].Name > all[j].Name
		}
		return all[i].Name < all[j].Name
	})

	if opts.Offset >= len(all) {
		return []Object{}, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

// Remove deletes the given paths. Missing paths are ignored.
func (s *MemoryStore) Remove(_ context.Context, bucket string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[bucket]; err != nil {
		return err
	}
	for _, p := range paths {
		delete(s.buckets[bucket], p)
	}
	return nil
}

// Open returns a reader over the stored object.
func (s *MemoryStore) Open(_ context.Context, bucket, objectPath string) (io.ReadCloser, *Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures[bucket]; err != nil {
		return nil, nil, err
	}
	obj, ok := s.buckets[bucket][objectPath]
	if !ok {
		return nil, nil, ErrNotFound
	}
	meta := obj.meta
	return io.NopCloser(bytes.NewReader(obj.data)), &meta, nil
}
