package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// MemoryObjectStorage keeps objects in process memory. It serves
// development setups without object storage, and tests.
type MemoryObjectStorage struct {
	// BaseURL prefixes returned object URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// Object is a stored blob
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemoryObjectStorage creates an empty MemoryObjectStorage
func NewMemoryObjectStorage(baseURL string) *MemoryObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}
	return &MemoryObjectStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

// Put stores a copy of data
func (s *MemoryObjectStorage) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	s.mu.Lock()
	s.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	s.mu.Unlock()
	return s.BaseURL + "/" + key, nil
}

// Delete removes an object; missing keys are not an error
func (s *MemoryObjectStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Get returns a stored object
func (s *MemoryObjectStorage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

var _ ObjectStorage = (*MemoryObjectStorage)(nil)
