// Package triage provides the business boundary for Careline's symptom triage.
// It defines the input Validator, the rule-based classification Engine and its
// Lexicon, the Service (classify, fallback, session persistence, notification),
// the Store interface, and the domain models shared with the HTTP layer.
package triage
