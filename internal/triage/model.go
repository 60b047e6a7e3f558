package triage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Severity is the patient-reported intensity of their symptoms.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Urgency is how quickly a patient should seek care.
type Urgency string

const (
	// UrgencyLow means self-care with monitoring
	UrgencyLow Urgency = "low"

	// UrgencyModerate means care within a few days
	UrgencyModerate Urgency = "moderate"

	// UrgencyHigh means same-day urgent care
	UrgencyHigh Urgency = "high"

	// UrgencyEmergency means emergency care immediately
	UrgencyEmergency Urgency = "emergency"
)

var urgencyOrder = []Urgency{UrgencyLow, UrgencyModerate, UrgencyHigh, UrgencyEmergency}

// Rank orders urgency tiers from 0 (low) to 3 (emergency). Unknown tiers rank -1.
func (u Urgency) Rank() int {
	for i, t := range urgencyOrder {
		if t == u {
			return i
		}
	}
	return -1
}

// Valid reports whether u is one of the four defined tiers.
func (u Urgency) Valid() bool { return u.Rank() >= 0 }

// raise returns the tier n steps above u, capped at emergency.
func (u Urgency) raise(n int) Urgency {
	r := u.Rank() + n
	if r >= len(urgencyOrder) {
		r = len(urgencyOrder) - 1
	}
	if r < 0 {
		r = 0
	}
	return urgencyOrder[r]
}

// atLeast returns the higher of u and floor.
func (u Urgency) atLeast(floor Urgency) Urgency {
	if u.Rank() < floor.Rank() {
		return floor
	}
	return u
}

// Priority ranks a single next step.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities from 0 (low) to 2 (high). Unknown priorities rank -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	default:
		return -1
	}
}

// Request is a validated triage input. Only the Validator builds one.
type Request struct {
	Symptoms   []string `json:"symptoms"`
	Duration   string   `json:"duration"`
	Severity   Severity `json:"severity"`
	PatientAge *int     `json:"patientAge,omitempty"`
}

// NextStep is a single prioritized action for the patient.
type NextStep struct {
	Action   string   `json:"action"`
	Priority Priority `json:"priority"`
}

// Assessment is the structured result of classifying a Request.
type Assessment struct {
	Urgency           Urgency    `json:"urgency"`
	Confidence        float64    `json:"confidence"`
	RecommendedAction string     `json:"recommendedAction"`
	NextSteps         []NextStep `json:"nextSteps"`
}

// Check reports the first invariant the assessment violates, or nil.
func (a Assessment) Check() error {
	if !a.Urgency.Valid() {
		return fmt.Errorf("unknown urgency %q", a.Urgency)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0, 1]", a.Confidence)
	}
	if a.RecommendedAction == "" {
		return fmt.Errorf("empty recommended action")
	}
	prev := PriorityHigh.Rank()
	for i, s := range a.NextSteps {
		if s.Action == "" {
			return fmt.Errorf("next step %d has empty action", i)
		}
		r := s.Priority.Rank()
		if r < 0 {
			return fmt.Errorf("next step %d has unknown priority %q", i, s.Priority)
		}
		if r > prev {
			return fmt.Errorf("next step %d priority %q out of order", i, s.Priority)
		}
		prev = r
	}
	return nil
}

// SymptomList decodes either a JSON array of strings or a single
// comma-separated string.
type SymptomList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *SymptomList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = ParseSymptoms(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("symptoms must be a string or an array of strings: %w", err)
	}
	*l = list
	return nil
}

// Submission is the raw triage request as received over the wire.
type Submission struct {
	Symptoms   SymptomList `json:"symptoms"`
	Duration   string      `json:"duration,omitempty"`
	Severity   string      `json:"severity,omitempty"`
	PatientAge *int        `json:"patientAge,omitempty"`
	PatientID  string      `json:"patientId,omitempty"`
}

// Source records which classifier produced an assessment.
type Source string

const (
	// SourceEngine is the local rule engine acting as primary classifier
	SourceEngine Source = "engine"

	// SourceRemote is the external classification API
	SourceRemote Source = "remote"

	// SourceFallback is the local rule engine standing in for a failed primary
	SourceFallback Source = "fallback"
)

// Session is a persisted assessment, kept only for submissions with a patient id.
type Session struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patientId"`
	Request    Request    `json:"request"`
	Assessment Assessment `json:"assessment"`
	Source     Source     `json:"source"`
	CreatedAt  time.Time  `json:"createdAt"`
}
