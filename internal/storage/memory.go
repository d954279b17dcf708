package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStorage keeps blobs in process. Used for local development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		baseURL: "memory://blobs",
	}
}

func (m *MemoryStorage) Upload(ctx context.Context, req UploadRequest) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	key := ObjectKey(req.Folder, req.Filename, time.Now())
	data := append([]byte(nil), req.Data...)

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()

	return Object{URL: m.baseURL + "/" + key, RemoteID: key, Size: int64(len(data))}, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, remoteID string) error {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return ErrEmptyRemoteID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[remoteID]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, remoteID)
	return nil
}

func (m *MemoryStorage) Get(remoteID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[remoteID]
	return data, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
