// Package store holds the repositories behind the interview pipeline: the
// in-process state store, the durable session logs and the profile vector indexes.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/spigell/career-twin/internal/interview"
)

var _ interview.Store = (*Memory)(nil)

// Memory keeps profiles, sessions and reports in process memory.
// Values are copied on the way in and out.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]*interview.ResumeProfile
	sessions map[string]*interview.Session
	reports  map[string]*interview.Report

	locks keyedMutex
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]*interview.ResumeProfile),
		sessions: make(map[string]*interview.Session),
		reports:  make(map[string]*interview.Report),
	}
}

func (m *Memory) PutProfile(_ context.Context, profile *interview.ResumeProfile) error {
	if profile == nil || profile.CandidateID == "" {
		return fmt.Errorf("%w: profile without candidate id", interview.ErrInvalidInput)
	}

	cp := *profile
	m.mu.Lock()
	m.profiles[profile.CandidateID] = &cp
	m.mu.Unlock()

	return nil
}

func (m *Memory) Profile(_ context.Context, candidateID string) (*interview.ResumeProfile, error) {
	m.mu.RLock()
	profile, ok := m.profiles[candidateID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("profile %q: %w", candidateID, interview.ErrNotFound)
	}

	// Profiles are never mutated after publication, so a shallow copy is enough.
	cp := *profile
	return &cp, nil
}

func (m *Memory) PutSession(_ context.Context, session *interview.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session without id", interview.ErrInvalidInput)
	}

	m.mu.Lock()
	m.sessions[session.ID] = session.Clone()
	m.mu.Unlock()

	return nil
}

func (m *Memory) Session(_ context.Context, sessionID string) (*interview.Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %q: %w", sessionID, interview.ErrNotFound)
	}

	return session.Clone(), nil
}

// UpdateSession holds the session's lock while fn runs, so fn may call back into
// the store for other keys. The copy fn mutated is committed only when fn succeeds.
func (m *Memory) UpdateSession(ctx context.Context, sessionID string, fn func(*interview.Session) error) (*interview.Session, error) {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	session, err := m.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(session); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sessionID] = session.Clone()
	m.mu.Unlock()

	return session, nil
}

func (m *Memory) CandidateSessions(_ context.Context, candidateID string) ([]*interview.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*interview.Session, 0)
	for _, s := range m.sessions {
		if s.CandidateID == candidateID {
			sessions = append(sessions, s.Clone())
		}
	}

	return sessions, nil
}

func (m *Memory) PutReport(_ context.Context, report *interview.Report) error {
	if report == nil || report.SessionID == "" {
		return fmt.Errorf("%w: report without session id", interview.ErrInvalidInput)
	}

	m.mu.Lock()
	m.reports[report.SessionID] = report.Clone()
	m.mu.Unlock()

	return nil
}

func (m *Memory) Report(_ context.Context, sessionID string) (*interview.Report, error) {
	m.mu.RLock()
	report, ok := m.reports[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("report for session %q: %w", sessionID, interview.ErrNotFound)
	}

	return report.Clone(), nil
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
