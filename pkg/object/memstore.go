package object

import (
	"fmt"
	"sync"
)

// MemStore is an in-memory Store, used as a test double and as the backing
// store for in-process remote servers.
type MemStore struct {
	mu      sync.RWMutex
	objects map[Hash]memObject
}

type memObject struct {
	objType ObjectType
	data    []byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[Hash]memObject)}
}

// Has reports whether the store contains an object with the given hash.
func (s *MemStore) Has(h Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[h]
	return ok
}

// Write stores an object and returns its content hash.
func (s *MemStore) Write(objType ObjectType, data []byte) (Hash, error) {
	h := HashObject(objType, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[h]; ok {
		return h, nil
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[h] = memObject{objType: objType, data: stored}
	return h, nil
}

// Read retrieves an object by hash, returning its type and raw content.
func (s *MemStore) Read(h Hash) (ObjectType, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[h]
	if !ok {
		return "", nil, fmt.Errorf("object read %s: not found", h)
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return obj.objType, out, nil
}

// Len returns the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
