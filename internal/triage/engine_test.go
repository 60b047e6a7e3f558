package triage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	testSymptomSets = [][]string{
		{"runny nose"},
		{"sore throat", "cough"},
		{"fever", "mystery tingling", "odd taste"},
		{"high fever"},
		{"severe headache", "cough"},
		{"tingling in ears"},
		{"chest pain"},
		{"Difficulty Breathing", "rash"},
		{"cough", "cough", "cough"},
		{"broken bone", "rash", "vomiting blood"},
	}
	testDurations = []string{
		"", "10 minutes", "3 hours", "1 day", "2 weeks", "3 months", "a year", "since forever",
		"3 months, worse today", "2 months and 3 days", "a few hours a day for 6 months", "2 days and 4 hours",
	}
	testSeverities = []Severity{SeverityMild, SeverityModerate, SeveritySevere}
	testAges       = []*int{nil, intPtr(1), intPtr(30), intPtr(80)}
)

func intPtr(n int) *int { return &n }

func forEachRequest(fn func(req Request)) {
	for _, syms := range testSymptomSets {
		for _, d := range testDurations {
			for _, sev := range testSeverities {
				for _, age := range testAges {
					fn(Request{Symptoms: syms, Duration: d, Severity: sev, PatientAge: age})
				}
			}
		}
	}
}

func TestClassify_EndToEnd(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)

	tests := []struct {
		name string
		req  Request
		want Urgency
	}{
		{"chest pain mild", Request{Symptoms: []string{"chest pain"}, Duration: "10 minutes", Severity: SeverityMild}, UrgencyEmergency},
		{"runny nose mild", Request{Symptoms: []string{"runny nose"}, Duration: "1 day", Severity: SeverityMild}, UrgencyLow},
		{"urgent moderate", Request{Symptoms: []string{"high fever", "severe headache"}, Duration: "2 days", Severity: SeverityModerate}, UrgencyHigh},
		{"urgent severe escalates", Request{Symptoms: []string{"high fever"}, Duration: "2 days", Severity: SeveritySevere}, UrgencyEmergency},
		{"routine severe escalates", Request{Symptoms: []string{"cough"}, Severity: SeveritySevere}, UrgencyModerate},
		{"unrecognized is not low", Request{Symptoms: []string{"tingling in ears"}, Severity: SeverityMild}, UrgencyModerate},
		{"mostly unrecognized", Request{Symptoms: []string{"headache", "tingling", "itchy eyes"}, Severity: SeverityMild}, UrgencyModerate},
		{"chronic routine", Request{Symptoms: []string{"cough"}, Duration: "3 months", Severity: SeverityMild}, UrgencyModerate},
		{"chronic with recent change", Request{Symptoms: []string{"cough"}, Duration: "3 months, worse today", Severity: SeverityMild}, UrgencyModerate},
		{"chronic mixed units", Request{Symptoms: []string{"cough"}, Duration: "2 months and 3 days", Severity: SeverityMild}, UrgencyModerate},
		{"chronic daily episodes", Request{Symptoms: []string{"cough"}, Duration: "a few hours a day for 6 months", Severity: SeverityMild}, UrgencyModerate},
		{"recent mixed units stays low", Request{Symptoms: []string{"runny nose"}, Duration: "2 days and 4 hours", Severity: SeverityMild}, UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Classify(tt.req)
			if got.Urgency != tt.want {
				t.Errorf("urgency = %q, want %q (confidence %.2f)", got.Urgency, tt.want, got.Confidence)
			}
		})
	}
}

func TestClassify_EmergencyOverride(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	critical := []string{"chest pain", "difficulty breathing", "loss of consciousness", "Seizure", "sudden slurred speech"}

	for _, term := range critical {
		for _, sev := range testSeverities {
			for _, d := range testDurations {
				req := Request{Symptoms: []string{"runny nose", term}, Duration: d, Severity: sev}
				got := e.Classify(req)
				if got.Urgency != UrgencyEmergency {
					t.Errorf("%v: urgency = %q, want emergency", req, got.Urgency)
				}
				if got.Confidence < 0.9 {
					t.Errorf("%v: confidence = %.2f, want >= 0.9", req, got.Confidence)
				}
			}
		}
	}
}

func TestClassify_EmergencyConfidenceGrowsWithCorroboration(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	one := e.Classify(Request{Symptoms: []string{"chest pain"}, Severity: SeverityModerate})
	three := e.Classify(Request{Symptoms: []string{"chest pain", "shortness of breath", "numbness"}, Severity: SeverityModerate})

	if three.Confidence <= one.Confidence {
		t.Errorf("confidence with 3 red flags = %.2f, want > %.2f", three.Confidence, one.Confidence)
	}
	if three.Confidence > 0.99 {
		t.Errorf("confidence = %.2f, want <= 0.99", three.Confidence)
	}
}

func TestClassify_SeverityMonotonic(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	for _, syms := range testSymptomSets {
		for _, d := range testDurations {
			for _, age := range testAges {
				prev := -1
				for _, sev := range testSeverities {
					got := e.Classify(Request{Symptoms: syms, Duration: d, Severity: sev, PatientAge: age})
					if got.Urgency.Rank() < prev {
						t.Errorf("symptoms=%v duration=%q severity=%s: urgency %q dropped below previous severity", syms, d, sev, got.Urgency)
					}
					prev = got.Urgency.Rank()
				}
			}
		}
	}
}

func TestClassify_Invariants(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	forEachRequest(func(req Request) {
		got := e.Classify(req)
		if err := got.Check(); err != nil {
			t.Errorf("%+v: invariant violated: %v", req, err)
		}
		if n := len(got.NextSteps); n < 2 || n > MaxNextSteps {
			t.Errorf("%+v: %d next steps, want 2..%d", req, n, MaxNextSteps)
		}
		if got.RecommendedAction != RecommendedAction(got.Urgency) {
			t.Errorf("%+v: recommended action does not match urgency %q", req, got.Urgency)
		}
	})
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	forEachRequest(func(req Request) {
		a := e.Classify(req)
		b := NewEngine(nil).Classify(req)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("%+v: classification differs between calls (-first +second):\n%s", req, diff)
		}
	})
}

func TestClassify_Concurrent(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	req := Request{Symptoms: []string{"high fever", "rash"}, Duration: "2 days", Severity: SeverityModerate}
	want := e.Classify(req)

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if diff := cmp.Diff(want, e.Classify(req)); diff != "" {
				errs <- diff
			}
		}()
	}
	wg.Wait()
	close(errs)
	for d := range errs {
		t.Errorf("concurrent classification differs:\n%s", d)
	}
}

func TestClassify_ConfidenceSignals(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	conf := func(syms ...string) float64 {
		return e.Classify(Request{Symptoms: syms, Severity: SeverityModerate}).Confidence
	}

	if single, double := conf("high fever"), conf("high fever", "severe headache"); double <= single {
		t.Errorf("corroborating urgent symptoms: %.2f, want > %.2f", double, single)
	}
	if clean, conflicted := conf("high fever"), conf("high fever", "runny nose"); conflicted >= clean {
		t.Errorf("conflicting signals: %.2f, want < %.2f", conflicted, clean)
	}
	if known, generic := conf("cough"), conf("feeling off"); generic >= known {
		t.Errorf("generic symptom confidence %.2f, want < %.2f", generic, known)
	}
}

func TestClassify_AgeAdjustment(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	base := Request{Symptoms: []string{"sore throat"}, Severity: SeverityModerate}

	adult := base
	adult.PatientAge = intPtr(30)
	if got := e.Classify(adult).Urgency; got != UrgencyLow {
		t.Errorf("adult urgency = %q, want low", got)
	}

	for _, age := range []int{0, 1, 65, 90} {
		r := base
		r.PatientAge = intPtr(age)
		if got := e.Classify(r).Urgency; got != UrgencyModerate {
			t.Errorf("age %d urgency = %q, want moderate", age, got)
		}
	}
}

func TestClassify_NextStepsForEmergency(t *testing.T) {
	t.Parallel()

	got := NewEngine(nil).Classify(Request{Symptoms: []string{"chest pain"}, Severity: SeverityMild})

	if got.NextSteps[0].Action != "Call emergency services (911) now" {
		t.Errorf("first step = %q, want call emergency services", got.NextSteps[0].Action)
	}
	if got.NextSteps[0].Priority != PriorityHigh {
		t.Errorf("first step priority = %q, want high", got.NextSteps[0].Priority)
	}
	var sawAdvice bool
	for _, s := range got.NextSteps {
		if s.Action == "Stop any physical activity and sit down" {
			sawAdvice = true
		}
	}
	if !sawAdvice {
		t.Errorf("expected chest pain advice in %v", got.NextSteps)
	}
}

func TestClassify_BreathingAdvice(t *testing.T) {
	t.Parallel()

	const sitUpright = "Sit upright and loosen tight clothing while you wait for help"

	tests := []struct {
		symptom string
		want    bool
	}{
		{"difficulty breathing", true},
		{"shortness of breath", true},
		{"out of breath on stairs", true},
		{"can't breathe", true},
		{"bad breath", false},
		{"breath smells sour", false},
	}

	e := NewEngine(nil)
	for _, tt := range tests {
		got := e.Classify(Request{Symptoms: []string{tt.symptom}, Severity: SeverityMild})
		var saw int
		for _, s := range got.NextSteps {
			if s.Action == sitUpright {
				saw++
			}
		}
		if saw > 1 {
			t.Errorf("%q: breathing advice repeated %d times", tt.symptom, saw)
		}
		if (saw == 1) != tt.want {
			t.Errorf("%q: breathing advice present = %v, want %v (steps %v)", tt.symptom, saw == 1, tt.want, got.NextSteps)
		}
		if tt.want || got.Urgency.Rank() >= UrgencyHigh.Rank() {
			continue
		}
		for _, s := range got.NextSteps {
			if s.Priority == PriorityHigh && !slices.Contains(stepTemplates[got.Urgency], s) {
				t.Errorf("%q: %s assessment carries high-priority advice %q", tt.symptom, got.Urgency, s.Action)
			}
		}
	}
}

func TestClassify_AdviceIndependentOfSymptomOrder(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	a := e.Classify(Request{Symptoms: []string{"fever", "rash"}, Severity: SeverityMild})
	b := e.Classify(Request{Symptoms: []string{"rash", "fever"}, Severity: SeverityMild})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("symptom order changed the assessment (-a +b):\n%s", diff)
	}
}

func TestEngine_AssessNeverErrors(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil)
	forEachRequest(func(req Request) {
		if _, err := e.Assess(context.Background(), req); err != nil {
			t.Errorf("%+v: Assess returned %v", req, err)
		}
	})
}

func TestNewEngine_CustomLexicon(t *testing.T) {
	t.Parallel()

	lx, err := ParseLexicon([]byte("critical: [purple spots]\nroutine: [hiccups]\n"))
	if err != nil {
		t.Fatalf("ParseLexicon: %v", err)
	}
	e := NewEngine(lx)

	if got := e.Classify(Request{Symptoms: []string{"Purple Spots on arm"}, Severity: SeverityMild}); got.Urgency != UrgencyEmergency {
		t.Errorf("custom critical term urgency = %q, want emergency", got.Urgency)
	}
	// chest pain is not in this lexicon so it falls back to ambiguous handling
	if got := e.Classify(Request{Symptoms: []string{"chest pain"}, Severity: SeverityMild}); got.Urgency != UrgencyModerate {
		t.Errorf("unknown term urgency = %q, want moderate", got.Urgency)
	}
}

func ExampleEngine_Classify() {
	req, _ := Validate("runny nose", "1 day", "mild")
	a := NewEngine(nil).Classify(req)
	fmt.Println(a.Urgency)
	// Output: low
}
