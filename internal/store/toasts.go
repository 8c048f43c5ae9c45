package store

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration applies when a toast is added without one.
const DefaultToastDuration = 5 * time.Second

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastWarning = "warning"
	ToastInfo    = "info"
)

// Toast is a transient user notification. A negative Duration keeps it
// until removed.
type Toast struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Title    string        `json:"title"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Toasts is a list of notifications that expire on their own.
type Toasts struct {
	*Store[[]Toast]
	defaultDuration time.Duration
	afterFunc       func(time.Duration, func()) *time.Timer

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewToasts(defaultDuration time.Duration) *Toasts {
	if defaultDuration == 0 {
		defaultDuration = DefaultToastDuration
	}
	return &Toasts{
		Store:           New([]Toast{}),
		defaultDuration: defaultDuration,
		afterFunc:       time.AfterFunc,
		timers:          make(map[string]*time.Timer),
	}
}

// Add shows a toast and returns its id.
func (s *Toasts) Add(t Toast) string {
	t.ID = uuid.NewString()
	if t.Duration == 0 {
		t.Duration = s.defaultDuration
	}
	s.Update(func(ts []Toast) []Toast { return append(slices.Clone(ts), t) })

	if t.Duration > 0 {
		id := t.ID
		timer := s.afterFunc(t.Duration, func() { s.Remove(id) })
		s.mu.Lock()
		s.timers[id] = timer
		s.mu.Unlock()
	}
	return t.ID
}

func (s *Toasts) Remove(id string) {
	s.mu.Lock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.Update(func(ts []Toast) []Toast {
		return slices.DeleteFunc(slices.Clone(ts), func(t Toast) bool { return t.ID == id })
	})
}

// Clear removes every toast and cancels pending expiries.
func (s *Toasts) Clear() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.Set([]Toast{})
}

func (s *Toasts) Success(title, message string) string {
	return s.Add(Toast{Type: ToastSuccess, Title: title, Message: message})
}

func (s *Toasts) Error(title, message string) string {
	return s.Add(Toast{Type: ToastError, Title: title, Message: message})
}

func (s *Toasts) Warning(title, message string) string {
	return s.Add(Toast{Type: ToastWarning, Title: title, Message: message})
}

func (s *Toasts) Info(title, message string) string {
	return s.Add(Toast{Type: ToastInfo, Title: title, Message: message})
}
