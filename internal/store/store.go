// Package store is the engine's persistence boundary: key-value get/put
// for feature sets and match results by opaque ids. Schema design,
// indexing and storage engine choice live behind this interface.
package store

import (
	"iter"
	"sync"

	"talentrank/internal/types"
)

// Store persists extracted feature sets and computed results.
type Store interface {
	// PutCandidate stores or replaces a candidate's feature set.
	PutCandidate(id string, fs types.FeatureSet)
	// GetCandidate returns a candidate's feature set if present.
	GetCandidate(id string) (types.FeatureSet, bool)
	// Candidates yields all stored candidates in insertion order. The
	// sequence is lazy, finite and restartable, so duplicate scans can
	// stream it without materializing the pool.
	Candidates() iter.Seq2[string, types.FeatureSet]
	// Len returns the number of stored candidates.
	Len() int

	// PutResult stores a match result under its content-derived key.
	PutResult(key string, result types.MatchResult)
	// GetResult returns a stored match result if present.
	GetResult(key string) (types.MatchResult, bool)
}

// Memory is an in-process Store. Safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	candidates map[string]types.FeatureSet
	order      []string
	results    map[string]types.MatchResult
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		candidates: make(map[string]types.FeatureSet),
		results:    make(map[string]types.MatchResult),
	}
}

func (m *Memory) PutCandidate(id string, fs types.FeatureSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.candidates[id]; !exists {
		m.order = append(m.order, id)
	}
	m.candidates[id] = fs
}

func (m *Memory) GetCandidate(id string) (types.FeatureSet, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fs, ok := m.candidates[id]
	return fs, ok
}

func (m *Memory) Candidates() iter.Seq2[string, types.FeatureSet] {
	return func(yield func(string, types.FeatureSet) bool) {
		// Snapshot under the lock so iteration never races writers.
		m.mu.RLock()
		ids := make([]string, len(m.order))
		copy(ids, m.order)
		sets := make([]types.FeatureSet, len(ids))
		for i, id := range ids {
			sets[i] = m.candidates[id]
		}
		m.mu.RUnlock()

		for i, id := range ids {
			if !yield(id, sets[i]) {
				return
			}
		}
	}
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func (m *Memory) PutResult(key string, result types.MatchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = result
}

func (m *Memory) GetResult(key string) (types.MatchResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.results[key]
	return result, ok
}
