// internal/triage/engine.go
package triage

import (
	"context"
	"math"
)

// Confidence bounds and adjustments used by the rule engine.
const (
	emergencyConfidence    = 0.95
	emergencyConfidenceCap = 0.99
	ambiguousConfidence    = 0.50
	mostlyUnknownConf      = 0.55
	chronicConfidence      = 0.75
	durationConfidenceCap  = 0.99
	conflictPenalty        = 0.05
)

// Classifier produces an assessment for a validated request. The local
// Engine never fails; remote classifiers may.
type Classifier interface {
	Assess(ctx context.Context, req Request) (Assessment, error)
}

// Engine is the rule-based classification and recommendation strategy.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	lexicon *Lexicon
}

// NewEngine creates an engine over lx, or the embedded lexicon if lx is nil.
func NewEngine(lx *Lexicon) *Engine {
	if lx == nil {
		lx = DefaultLexicon()
	}
	return &Engine{lexicon: lx}
}

// Assess implements Classifier. The error is always nil.
func (e *Engine) Assess(_ context.Context, req Request) (Assessment, error) {
	return e.Classify(req), nil
}

// Classify is a deterministic function of the request. Red-flag symptoms
// force emergency; otherwise the tier is built from the symptom classes and
// only ever raised by duration, severity and age.
func (e *Engine) Classify(req Request) Assessment {
	sig := e.lexicon.scan(req.Symptoms)

	if sig.critical > 0 {
		conf := math.Min(emergencyConfidenceCap, emergencyConfidence+0.01*float64(sig.critical-1))
		return e.assessment(UrgencyEmergency, conf, sig)
	}

	urgency, conf := baseTier(sig)
	urgency, conf = e.adjustForDuration(urgency, conf, req.Duration)
	urgency, conf = adjustForSeverity(urgency, conf, req.Severity)
	if req.PatientAge != nil {
		urgency, conf = adjustForAge(urgency, conf, *req.PatientAge)
	}

	return e.assessment(urgency, conf, sig)
}

func (e *Engine) assessment(u Urgency, conf float64, sig signals) Assessment {
	return Assessment{
		Urgency:           u,
		Confidence:        roundConfidence(conf),
		RecommendedAction: RecommendedAction(u),
		NextSteps:         nextSteps(u, sig.advice),
	}
}

// baseTier picks the starting tier from symptom classes. Unrecognized input
// is treated as ambiguous and biased upward.
func baseTier(sig signals) (Urgency, float64) {
	switch {
	case sig.urgent > 0:
		conf := math.Min(0.90, 0.70+0.10*float64(sig.urgent))
		if sig.routine > 0 || sig.unknown > 0 {
			conf -= conflictPenalty
		}
		return UrgencyHigh, conf
	case sig.routine > 0:
		if sig.unknown > sig.routine {
			return UrgencyModerate, mostlyUnknownConf
		}
		conf := math.Min(0.85, 0.65+0.10*float64(sig.routine)) - conflictPenalty*float64(sig.unknown)
		return UrgencyLow, conf
	default:
		return UrgencyModerate, ambiguousConfidence
	}
}

func (e *Engine) adjustForDuration(u Urgency, conf float64, duration string) (Urgency, float64) {
	unit, ok := e.lexicon.durationUnit(duration)
	if !ok {
		return u, conf
	}
	conf = math.Min(durationConfidenceCap, conf*unit.Factor)
	// long-standing symptoms warrant a visit even when each one is minor
	if unit.Chronic && u == UrgencyLow {
		return UrgencyModerate, chronicConfidence
	}
	return u, conf
}

func adjustForSeverity(u Urgency, conf float64, sev Severity) (Urgency, float64) {
	switch sev {
	case SeveritySevere:
		return u.raise(1), math.Min(0.95, conf+0.10)
	case SeverityMild:
		if u == UrgencyHigh {
			conf *= 0.90
		}
		return u, conf
	default:
		return u, math.Min(0.90, conf+0.05)
	}
}

func adjustForAge(u Urgency, conf float64, age int) (Urgency, float64) {
	if age < 65 && age >= 2 {
		return u, conf
	}
	if u == UrgencyLow {
		return u.atLeast(UrgencyModerate), math.Min(0.85, conf)
	}
	return u, math.Min(0.95, conf+0.05)
}

func roundConfidence(c float64) float64 {
	c = math.Max(0, math.Min(1, c))
	return math.Round(c*100) / 100
}
