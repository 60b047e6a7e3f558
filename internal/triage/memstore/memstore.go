// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/linnemanlabs/careline/internal/triage"
)

// Store holds triage sessions in memory. Suitable for dev/testing.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*triage.Session // session ID -> session
	byPatient map[string][]string        // patient ID -> session IDs
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		sessions:  make(map[string]*triage.Session),
		byPatient: make(map[string][]string),
	}
}

// Get retrieves a session by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return clone(sess), true, nil
}

// Put stores a copy of the session. A second Put with the same ID replaces it.
func (s *Store) Put(_ context.Context, sess *triage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions[sess.ID]; ok && old.PatientID != sess.PatientID {
		s.byPatient[old.PatientID] = slices.DeleteFunc(s.byPatient[old.PatientID], func(id string) bool {
			return id == sess.ID
		})
	}
	if !slices.Contains(s.byPatient[sess.PatientID], sess.ID) {
		s.byPatient[sess.PatientID] = append(s.byPatient[sess.PatientID], sess.ID)
	}
	s.sessions[sess.ID] = clone(sess)
	return nil
}

// ListByPatient returns up to limit copies of a patient's sessions, newest first.
func (s *Store) ListByPatient(_ context.Context, patientID string, limit int) ([]*triage.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPatient[patientID]
	out := make([]*triage.Session, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(s.sessions[id]))
	}
	slices.SortStableFunc(out, func(a, b *triage.Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// clone copies the session including its slices so callers cannot mutate
// stored state.
func clone(s *triage.Session) *triage.Session {
	cp := *s
	cp.Request.Symptoms = slices.Clone(s.Request.Symptoms)
	cp.Assessment.NextSteps = slices.Clone(s.Assessment.NextSteps)
	if s.Request.PatientAge != nil {
		age := *s.Request.PatientAge
		cp.Request.PatientAge = &age
	}
	return &cp
}
