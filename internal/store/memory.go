package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps documents in process memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]*memoryDoc
}

type memoryDoc struct {
	recordID string
	value    []byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]*memoryDoc)}
}

// Open returns the store of did.
func (m *Memory) Open(ctx context.Context, did string) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryStore{m: m, did: did}, nil
}

type memoryStore struct {
	m   *Memory
	did string
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	doc, ok := s.m.docs[s.did][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc.value...), nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	docs, ok := s.m.docs[s.did]
	if !ok {
		docs = make(map[string]*memoryDoc)
		s.m.docs[s.did] = docs
	}

	doc, ok := docs[key]
	if !ok {
		doc = &memoryDoc{recordID: uuid.NewString()}
		docs[key] = doc
	}
	doc.value = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) RecordID(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	doc, ok := s.m.docs[s.did][key]
	if !ok {
		return "", ErrRecordMissing
	}
	return doc.recordID, nil
}
