// Package notify provides the in-app notification accumulator used by
// connect flows and best-effort lookups to surface non-blocking messages.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one user-visible message.
type Notification struct {
	ID          string
	Severity    Severity
	Title       string
	Description string
	CreatedAt   time.Time
}

// Service accumulates notifications and fans them out to subscribers.
type Service struct {
	mu        sync.Mutex
	items     []Notification
	nextSubID int
	subs      map[int]func(Notification)
	max       int
}

// NewService returns a service that keeps at most 50 notifications.
func NewService() *Service {
	return &Service{subs: make(map[int]func(Notification)), max: 50}
}

// NotifyInfo adds an informational notification.
func (s *Service) NotifyInfo(title, description string) string {
	return s.add(SeverityInfo, title, description)
}

// NotifyWarning adds a warning notification.
func (s *Service) NotifyWarning(title, description string) string {
	return s.add(SeverityWarning, title, description)
}

// NotifyError adds an error notification.
func (s *Service) NotifyError(title, description string) string {
	return s.add(SeverityError, title, description)
}

func (s *Service) add(sev Severity, title, description string) string {
	n := Notification{
		ID:          uuid.NewString(),
		Severity:    sev,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.items = append(s.items, n)
	if len(s.items) > s.max {
		s.items = s.items[len(s.items)-s.max:]
	}
	subs := make([]func(Notification), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
	return n.ID
}

// Remove deletes a notification by id; unknown ids are a no-op.
func (s *Service) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return
		}
	}
}

// List returns a copy of the current notifications, oldest first.
func (s *Service) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Subscribe registers a callback for new notifications and returns its
// unsubscribe function.
func (s *Service) Subscribe(fn func(Notification)) (cleanup func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
