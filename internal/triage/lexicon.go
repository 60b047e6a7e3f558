package triage

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// DurationUnit scales confidence when a duration mentions Match. Chronic units
// escalate low urgency to moderate.
type DurationUnit struct {
	Match   string  `yaml:"match"`
	Factor  float64 `yaml:"factor"`
	Chronic bool    `yaml:"chronic,omitempty"`
}

// Advice adds a next step whenever a symptom mentions Match.
type Advice struct {
	Match    string   `yaml:"match"`
	Action   string   `yaml:"action"`
	Priority Priority `yaml:"priority"`
}

// Lexicon is the keyword knowledge the Engine classifies against.
type Lexicon struct {
	Critical  []string       `yaml:"critical"`
	Urgent    []string       `yaml:"urgent"`
	Routine   []string       `yaml:"routine"`
	Durations []DurationUnit `yaml:"durations"`
	Advice    []Advice       `yaml:"advice"`
}

var defaultLexicon = sync.OnceValues(func() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
})

// DefaultLexicon returns the embedded lexicon. It panics if the embedded
// file is malformed, which the package tests rule out.
func DefaultLexicon() *Lexicon {
	lx, err := defaultLexicon()
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return lx
}

// LoadLexicon reads and validates a lexicon YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	lx, err := ParseLexicon(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lx, nil
}

// ParseLexicon decodes YAML, lower-cases every term and validates the result.
// Unknown keys are rejected.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lx Lexicon
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&lx); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	lx.normalize()
	if err := lx.Validate(); err != nil {
		return nil, err
	}
	return &lx, nil
}

func (lx *Lexicon) normalize() {
	lower := func(terms []string) []string {
		out := make([]string, 0, len(terms))
		for _, t := range terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	lx.Critical = lower(lx.Critical)
	lx.Urgent = lower(lx.Urgent)
	lx.Routine = lower(lx.Routine)
	for i := range lx.Durations {
		lx.Durations[i].Match = strings.ToLower(strings.TrimSpace(lx.Durations[i].Match))
	}
	for i := range lx.Advice {
		lx.Advice[i].Match = strings.ToLower(strings.TrimSpace(lx.Advice[i].Match))
		lx.Advice[i].Action = strings.TrimSpace(lx.Advice[i].Action)
	}
}

// Validate checks the lexicon can drive the Engine.
func (lx *Lexicon) Validate() error {
	var errs []error

	// without red-flag terms the emergency override could never fire
	if len(lx.Critical) == 0 {
		errs = append(errs, errors.New("critical terms are required"))
	}

	for i, d := range lx.Durations {
		if d.Match == "" {
			errs = append(errs, fmt.Errorf("durations[%d]: match is required", i))
		}
		if d.Factor <= 0 || d.Factor > 2 {
			errs = append(errs, fmt.Errorf("durations[%d]: factor %v must be in (0, 2]", i, d.Factor))
		}
	}

	for i, a := range lx.Advice {
		if a.Match == "" || a.Action == "" {
			errs = append(errs, fmt.Errorf("advice[%d]: match and action are required", i))
		}
		if a.Priority.Rank() < 0 {
			errs = append(errs, fmt.Errorf("advice[%d]: invalid priority %q", i, a.Priority))
		}
	}

	return errors.Join(errs...)
}

// symptomClass is the highest lexicon class a symptom matched.
type symptomClass int

const (
	classUnknown symptomClass = iota
	classRoutine
	classUrgent
	classCritical
)

// signals summarizes how a symptom list matched the lexicon.
type signals struct {
	critical int
	urgent   int
	routine  int
	unknown  int
	advice   []Advice
}

func (lx *Lexicon) classify(symptom string) symptomClass {
	switch {
	case containsAny(symptom, lx.Critical):
		return classCritical
	case containsAny(symptom, lx.Urgent):
		return classUrgent
	case containsAny(symptom, lx.Routine):
		return classRoutine
	default:
		return classUnknown
	}
}

func (lx *Lexicon) scan(symptoms []string) signals {
	var sig signals
	matched := make([]bool, len(lx.Advice))
	for _, raw := range symptoms {
		s := strings.ToLower(raw)
		switch lx.classify(s) {
		case classCritical:
			sig.critical++
		case classUrgent:
			sig.urgent++
		case classRoutine:
			sig.routine++
		default:
			sig.unknown++
		}
		for i, a := range lx.Advice {
			if !matched[i] && strings.Contains(s, a.Match) {
				matched[i] = true
			}
		}
	}
	// keep lexicon order so output does not depend on symptom order
	for i, a := range lx.Advice {
		if matched[i] {
			sig.advice = append(sig.advice, a)
		}
	}
	return sig
}

// durationUnit returns the first unit mentioned in duration, if any. The
// result is chronic when any chronic unit appears, so "3 months, worse
// today" keeps the escalation of its longest span.
func (lx *Lexicon) durationUnit(duration string) (DurationUnit, bool) {
	d := strings.ToLower(duration)
	var (
		out   DurationUnit
		found bool
	)
	for _, u := range lx.Durations {
		if !strings.Contains(d, u.Match) {
			continue
		}
		if !found {
			out, found = u, true
		}
		out.Chronic = out.Chronic || u.Chronic
	}
	return out, found
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
