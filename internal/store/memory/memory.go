// Package memory implements an in-process document store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

// Store keeps documents in maps keyed by wiki and full name.
// Documents are copied on the way in and out so callers never share state.
type Store struct {
	mu    sync.RWMutex
	wikis map[string]map[string]*store.Document
	saves int
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{wikis: map[string]map[string]*store.Document{}}
}

// Get implements store.Store.
func (s *Store) Get(_ context.Context, ref store.Reference) (*store.Document, error) {
	if !ref.Valid() {
		return nil, store.ErrEmptyReference
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.wikis[ref.Wiki][ref.FullName()]; ok {
		return doc.Clone(), nil
	}

	return store.NewDocument(ref), nil
}

// Save implements store.Store.
func (s *Store) Save(_ context.Context, doc *store.Document) error {
	if !doc.Ref.Valid() {
		return store.ErrEmptyReference
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.wikis[doc.Ref.Wiki]
	if !ok {
		docs = map[string]*store.Document{}
		s.wikis[doc.Ref.Wiki] = docs
	}

	if _, exists := docs[doc.Ref.FullName()]; exists && doc.New {
		return store.ErrDocumentExists
	}

	stored := doc.Clone()
	stored.New = false
	docs[doc.Ref.FullName()] = stored
	doc.New = false
	s.saves++

	return nil
}

// Exists implements store.Store.
func (s *Store) Exists(_ context.Context, ref store.Reference) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.wikis[ref.Wiki][ref.FullName()]

	return ok, nil
}

// Search implements store.Store.
func (s *Store) Search(_ context.Context, q store.Query) ([]store.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []store.Reference

	for _, doc := range s.wikis[q.Wiki] {
		for _, obj := range doc.ObjectsOf(q.Class) {
			if q.Matches(obj) {
				refs = append(refs, doc.Ref)
				break
			}
		}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].FullName() < refs[j].FullName() })

	return refs, nil
}

// Saves returns how many successful saves the store has seen.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saves
}
