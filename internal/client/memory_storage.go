package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStorage is an in-process StorageClient used when R2 is not
// configured
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
		baseURL: baseURL,
	}
}

func (m *MemoryStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return key, nil
}

func (m *MemoryStorage) Download(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return bytes.Clone(obj.data), obj.contentType, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	expires := time.Now().Add(expiry).Unix()
	return fmt.Sprintf("%s?expires=%d", m.GetPublicURL(key), expires), nil
}

func (m *MemoryStorage) GetPublicURL(key string) string {
	return fmt.Sprintf("%s/%s", m.baseURL, key)
}
