package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var _ EbookStorage = (*memoryEbookStorage)(nil) // ensure memoryEbookStorage implements EbookStorage.

// memoryEbookStorage keeps ebooks into a map. Nothing survives a restart.
type memoryEbookStorage struct {
	logger *zap.Logger
	ids    UIDHandler
	mu     sync.RWMutex
	ebooks map[string]Ebook
}

// NewMemoryEbookStorage provides an instance of map-based ebook storage.
func NewMemoryEbookStorage(logger *zap.Logger, ids UIDHandler) EbookStorage {
	return &memoryEbookStorage{
		logger: logger,
		ids:    ids,
		ebooks: make(map[string]Ebook),
	}
}

// GetAll returns all stored ebooks in no particular order.
func (ms *memoryEbookStorage) GetAll(_ context.Context) ([]Ebook, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	ebooks := make([]Ebook, 0, len(ms.ebooks))
	for _, ebook := range ms.ebooks {
		ebooks = append(ebooks, ebook)
	}
	return ebooks, nil
}

// GetOne retrieves an ebook record based on its ID.
func (ms *memoryEbookStorage) GetOne(_ context.Context, id string) (Ebook, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	ebook, ok := ms.ebooks[id]
	if !ok {
		return Ebook{}, ErrEbookNotFound
	}
	return ebook, nil
}

// Add stores the ebook under a freshly generated ID. A new ID is drawn
// as long as the generated one is already in use.
func (ms *memoryEbookStorage) Add(_ context.Context, ebook Ebook) (Ebook, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ebook.ID = ms.ids.Generate(EbookIDPrefix)
	for {
		if _, exists := ms.ebooks[ebook.ID]; !exists {
			break
		}
		ms.logger.Warn("storage: generated ebook id already in use", zap.String("ebook.id", ebook.ID))
		ebook.ID = ms.ids.Generate(EbookIDPrefix)
	}
	ms.ebooks[ebook.ID] = ebook
	return ebook, nil
}

// Replace overwrites the ebook stored at id. It never inserts.
func (ms *memoryEbookStorage) Replace(_ context.Context, id string, ebook Ebook) (Ebook, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.ebooks[id]; !exists {
		return Ebook{}, ErrEbookNotFound
	}
	ebook.ID = id
	ms.ebooks[id] = ebook
	return ebook, nil
}

// Remove deletes the ebook stored at id and returns it.
func (ms *memoryEbookStorage) Remove(_ context.Context, id string) (Ebook, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ebook, exists := ms.ebooks[id]
	if !exists {
		return Ebook{}, ErrEbookNotFound
	}
	delete(ms.ebooks, id)
	return ebook, nil
}

func (ms *memoryEbookStorage) Close() error {
	return nil
}
