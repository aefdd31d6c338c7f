// Package accessrequests tracks the pending resource selections of an
// access request being drafted in one workspace.
package accessrequests

import (
	"sync"

	"github.com/spirehq/spire/internal/uri"
)

// Resource is one selected resource in a draft access request.
type Resource struct {
	URI  uri.URI
	Name string
	Kind string
}

// Service accumulates the draft selection for a single workspace.
type Service struct {
	mu       sync.Mutex
	selected map[uri.URI]Resource
}

// NewService returns an empty selection.
func NewService() *Service {
	return &Service{selected: make(map[uri.URI]Resource)}
}

// Toggle adds the resource to the selection, or removes it when already
// selected. Returns true when the resource is selected afterwards.
func (s *Service) Toggle(r Resource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[r.URI]; ok {
		delete(s.selected, r.URI)
		return false
	}
	s.selected[r.URI] = r
	return true
}

// IsSelected reports whether the resource is part of the draft.
func (s *Service) IsSelected(resourceURI uri.URI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[resourceURI]
	return ok
}

// Count returns the number of selected resources.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

// List returns a copy of the current selection.
func (s *Service) List() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Resource, 0, len(s.selected))
	for _, r := range s.selected {
		out = append(out, r)
	}
	return out
}

// Clear empties the selection, typically after the request is submitted.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[uri.URI]Resource)
}
