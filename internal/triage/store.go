package triage

import "context"

// Store is the persistence interface for triage sessions.
type Store interface {
	Get(ctx context.Context, id string) (*Session, bool, error)
	Put(ctx context.Context, s *Session) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*Session, error)
}

// Escalation is handed to a Notifier for every emergency-tier assessment.
type Escalation struct {
	SessionID  string
	PatientID  string
	Request    Request
	Assessment Assessment
	Source     Source
}

// Notifier delivers escalations to the care team.
type Notifier interface {
	Notify(ctx context.Context, e *Escalation) error
}
