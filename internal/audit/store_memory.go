package audit

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionFinalized = errors.New("session already finalized")
)

type memoryStore struct {
	mu        sync.RWMutex
	templates map[string]Template
	sessions  map[string]Session
}

// NewInMemoryStore backs dev mode and tests.
func NewInMemoryStore() Store {
	return &memoryStore{
		templates: map[string]Template{},
		sessions:  map[string]Session{},
	}
}

func (m *memoryStore) PutTemplate(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	m.templates[t.ID] = t
	return nil
}

func (m *memoryStore) GetTemplate(id string) (Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

func (m *memoryStore) ListTemplates(_ context.Context, opts ListOpts) ([]TemplateSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TemplateSummary, 0, len(m.templates))
	for _, t := range m.templates {
		if opts.Q != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(opts.Q)) {
			continue
		}
		out = append(out, TemplateSummary{
			ID:            t.ID,
			Title:         t.Title,
			SectionCount:  len(t.Sections),
			QuestionCount: t.TotalQuestions(),
			CreatedAt:     t.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, opts.Offset, opts.Limit), nil
}

func (m *memoryStore) NewSession(templateID, userID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[templateID]; !ok {
		return Session{}, ErrTemplateNotFound
	}
	s := Session{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		UserID:     userID,
		Status:     StatusInProgress,
		Responses:  map[string]Response{},
		StartedAt:  time.Now().Unix(),
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetSession(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memoryStore) ListSessions(_ context.Context, opts SessionListOpts) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if opts.TemplateID != "" && s.TemplateID != opts.TemplateID {
			continue
		}
		if opts.UserID != "" && s.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	return window(out, opts.Offset, opts.Limit), nil
}

// mutate serializes a read-modify-write of one session against its
// template. fn runs with the lock held.
func (m *memoryStore) mutate(sessionID string, fn func(*Session, Template) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.Status == StatusFinalized {
		return Session{}, ErrSessionFinalized
	}
	t, ok := m.templates[s.TemplateID]
	if !ok {
		return Session{}, ErrTemplateNotFound
	}
	if err := fn(&s, t); err != nil {
		return Session{}, err
	}
	m.sessions[sessionID] = s
	return s, nil
}

func (m *memoryStore) SaveResponses(sessionID string, patches map[string]ResponsePatch) (Session, error) {
	return m.mutate(sessionID, func(s *Session, _ Template) error {
		s.ApplyResponses(patches)
		return nil
	})
}

func (m *memoryStore) Advance(sessionID string) (Session, bool, error) {
	complete := false
	s, err := m.mutate(sessionID, func(s *Session, t Template) error {
		complete = s.Advance(t)
		return nil
	})
	return s, complete, err
}

func (m *memoryStore) Retreat(sessionID string) (Session, error) {
	return m.mutate(sessionID, func(s *Session, t Template) error {
		s.Retreat(t)
		return nil
	})
}

func (m *memoryStore) JumpToSection(sessionID string, section int) (Session, error) {
	return m.mutate(sessionID, func(s *Session, t Template) error {
		s.JumpToSection(t, section)
		return nil
	})
}

func (m *memoryStore) JumpToQuestion(sessionID string, question int) (Session, error) {
	return m.mutate(sessionID, func(s *Session, t Template) error {
		s.JumpToQuestion(t, question)
		return nil
	})
}

func (m *memoryStore) SetPaused(sessionID string, paused bool) (Session, error) {
	return m.mutate(sessionID, func(s *Session, _ Template) error {
		s.Paused = paused
		return nil
	})
}

func (m *memoryStore) SyncElapsed(sessionID string, elapsedSec int64) (Session, error) {
	return m.mutate(sessionID, func(s *Session, _ Template) error {
		s.ElapsedSec = elapsedSec
		return nil
	})
}

func (m *memoryStore) Finalize(sessionID string, elapsedSec int64) (Session, error) {
	return m.mutate(sessionID, func(s *Session, t Template) error {
		s.ElapsedSec = elapsedSec
		s.Finalize(t)
		return nil
	})
}

func window[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return []T{}
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
