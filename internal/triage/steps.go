package triage

import "slices"

// MaxNextSteps bounds the number of next steps in an assessment.
const MaxNextSteps = 5

var recommendedActions = map[Urgency]string{
	UrgencyEmergency: "Call 911 or go to the nearest emergency department immediately.",
	UrgencyHigh:      "Seek urgent care today at an urgent care clinic or emergency department.",
	UrgencyModerate:  "Schedule an appointment with a primary care provider within the next 1-3 days.",
	UrgencyLow:       "Manage symptoms at home with self-care and monitor them for changes.",
}

var stepTemplates = map[Urgency][]NextStep{
	UrgencyEmergency: {
		{Action: "Call emergency services (911) now", Priority: PriorityHigh},
		{Action: "Do not drive yourself; wait for the ambulance", Priority: PriorityHigh},
		{Action: "Notify a family member or caregiver", Priority: PriorityMedium},
		{Action: "Bring your health card and medication list if it is safe to do so", Priority: PriorityLow},
	},
	UrgencyHigh: {
		{Action: "Go to the nearest urgent care clinic or emergency department today", Priority: PriorityHigh},
		{Action: "Bring your health card and a list of current medications", Priority: PriorityMedium},
		{Action: "Arrange a ride if you cannot travel safely on your own", Priority: PriorityMedium},
	},
	UrgencyModerate: {
		{Action: "Book an appointment with your primary care provider in the next 1-3 days", Priority: PriorityHigh},
		{Action: "Monitor your symptoms and note any changes", Priority: PriorityMedium},
		{Action: "Prepare a list of questions and current medications for your visit", Priority: PriorityLow},
	},
	UrgencyLow: {
		{Action: "Rest, drink fluids and use over-the-counter remedies as directed", Priority: PriorityMedium},
		{Action: "Monitor your symptoms and note any changes", Priority: PriorityMedium},
		{Action: "Book a routine appointment if symptoms last more than a week", Priority: PriorityLow},
		{Action: "Seek care sooner if symptoms get worse or new ones appear", Priority: PriorityLow},
	},
}

// RecommendedAction returns the single-sentence instruction for u.
func RecommendedAction(u Urgency) string {
	if a, ok := recommendedActions[u]; ok {
		return a
	}
	// unknown tier: send the patient to a clinician rather than guess
	return recommendedActions[UrgencyHigh]
}

// nextSteps merges the urgency template with symptom advice, drops repeated
// actions, orders by priority (stable) and truncates to MaxNextSteps.
func nextSteps(u Urgency, advice []Advice) []NextStep {
	tmpl := stepTemplates[u]
	steps := make([]NextStep, 0, len(tmpl)+len(advice))
	seen := make(map[string]bool, cap(steps))

	add := func(s NextStep) {
		if seen[s.Action] {
			return
		}
		seen[s.Action] = true
		steps = append(steps, s)
	}
	for _, s := range tmpl {
		add(s)
	}
	for _, a := range advice {
		add(NextStep{Action: a.Action, Priority: a.Priority})
	}

	OrderSteps(steps)
	if len(steps) > MaxNextSteps {
		steps = steps[:MaxNextSteps]
	}
	return steps
}

// OrderSteps sorts steps in place from high to low priority. Steps that share
// a priority keep their relative order.
func OrderSteps(steps []NextStep) {
	slices.SortStableFunc(steps, func(a, b NextStep) int {
		return b.Priority.Rank() - a.Priority.Rank()
	})
}
