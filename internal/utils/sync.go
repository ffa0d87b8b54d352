// Copyright (c) 2025 @AmarnathCJD

package utils

import "sync"

// SyncMap is a mutex guarded map, the generic form of the typed maps this
// package used to carry one per value type.
type SyncMap[K comparable, V any] struct {
	mutex sync.RWMutex
	m     map[K]V
}

func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{m: make(map[K]V)}
}

func (s *SyncMap[K, V]) Has(key K) bool {
	s.mutex.RLock()
	_, ok := s.m[key]
	s.mutex.RUnlock()
	return ok
}

func (s *SyncMap[K, V]) Get(key K) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// AddIfAbsent stores value only when key is not present yet and reports
// whether it did.
func (s *SyncMap[K, V]) AddIfAbsent(key K, value V) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.m[key]; ok {
		return false
	}
	s.m[key] = value
	return true
}

func (s *SyncMap[K, V]) Delete(key K) bool {
	s.mutex.Lock()
	_, ok := s.m[key]
	delete(s.m, key)
	s.mutex.Unlock()
	return ok
}

func (s *SyncMap[K, V]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.m)
}
