package main

import (
	"context"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockEbookStorage struct {
	GetAllFunc  func(ctx context.Context) ([]Ebook, error)
	GetOneFunc  func(ctx context.Context, id string) (Ebook, error)
	AddFunc     func(ctx context.Context, ebook Ebook) (Ebook, error)
	ReplaceFunc func(ctx context.Context, id string, ebook Ebook) (Ebook, error)
	RemoveFunc  func(ctx context.Context, id string) (Ebook, error)
}

// GetAll mocks the behavior of retrieving all ebooks by the storage.
func (m *MockEbookStorage) GetAll(ctx context.Context) ([]Ebook, error) {
	return m.GetAllFunc(ctx)
}

// GetOne mocks the behavior of retrieving an ebook by the storage.
func (m *MockEbookStorage) GetOne(ctx context.Context, id string) (Ebook, error) {
	return m.GetOneFunc(ctx, id)
}

// Add mocks the behavior of ebook creation by the storage.
func (m *MockEbookStorage) Add(ctx context.Context, ebook Ebook) (Ebook, error) {
	return m.AddFunc(ctx, ebook)
}

// Replace mocks the behavior of ebook replacement by the storage.
func (m *MockEbookStorage) Replace(ctx context.Context, id string, ebook Ebook) (Ebook, error) {
	return m.ReplaceFunc(ctx, id, ebook)
}

// Remove mocks the behavior of deleting an ebook by the storage.
func (m *MockEbookStorage) Remove(ctx context.Context, id string) (Ebook, error) {
	return m.RemoveFunc(ctx, id)
}

func (m *MockEbookStorage) Close() error {
	return nil
}

// MockQueuer records pushed changes and serves popped ones from a channel.
type MockQueuer struct {
	mu       sync.Mutex
	pushed   []string
	PushFunc func(ctx context.Context, qid string, ebook Ebook) error
	PopFunc  func(ctx context.Context, qids ...string) (string, Ebook, error)
}

func (mq *MockQueuer) Push(ctx context.Context, qid string, ebook Ebook) error {
	mq.mu.Lock()
	mq.pushed = append(mq.pushed, qid+"|"+ebook.ID)
	mq.mu.Unlock()
	if mq.PushFunc == nil {
		return nil
	}
	return mq.PushFunc(ctx, qid, ebook)
}

func (mq *MockQueuer) Pop(ctx context.Context, qids ...string) (string, Ebook, error) {
	return mq.PopFunc(ctx, qids...)
}

// Pushed returns the recorded `qid|ebook.id` entries.
func (mq *MockQueuer) Pushed() []string {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return append([]string(nil), mq.pushed...)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler. Generate hands out the
// mocked ids in order and keeps returning the last one once exhausted.
type MockUIDHandler struct {
	mu         sync.Mutex
	MockedUIDs []string
	next       int
	Valid      bool
}

// NewMockUIDHandler returns a mocked instance with predictable ids.
func NewMockUIDHandler(valid bool, ids ...string) *MockUIDHandler {
	return &MockUIDHandler{MockedUIDs: ids, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	muid.mu.Lock()
	defer muid.mu.Unlock()
	id := ""
	if len(muid.MockedUIDs) > 0 {
		i := muid.next
		if i >= len(muid.MockedUIDs) {
			i = len(muid.MockedUIDs) - 1
		}
		id = muid.MockedUIDs[i]
		muid.next++
	}
	if prefix == "" {
		return id
	}
	return prefix + ":" + id
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// MockMirror is an in-memory MirrorStorage.
type MockMirror struct {
	mu     sync.Mutex
	ebooks map[string]Ebook
}

func NewMockMirror() *MockMirror {
	return &MockMirror{ebooks: make(map[string]Ebook)}
}

func (mm *MockMirror) Put(_ context.Context, ebook Ebook) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.ebooks[ebook.ID] = ebook
	return nil
}

func (mm *MockMirror) Remove(_ context.Context, id string) (Ebook, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	ebook, ok := mm.ebooks[id]
	if !ok {
		return Ebook{}, ErrEbookNotFound
	}
	delete(mm.ebooks, id)
	return ebook, nil
}

func (mm *MockMirror) Get(id string) (Ebook, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	ebook, ok := mm.ebooks[id]
	return ebook, ok
}
