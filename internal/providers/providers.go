// Package providers is the read-only healthcare provider directory: a static
// listing or an external HTTP directory, with search and specialty filtering.
package providers

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/linnemanlabs/go-core/xerrors"
)

// ErrUnavailable means the directory could not be reached or answered badly.
var ErrUnavailable = xerrors.New("provider directory unavailable")

// AllSpecialties is the specialty filter value that matches every provider.
const AllSpecialties = "all"

// Provider is a directory entry. Rating is 0.0-5.0; availability and wait
// time are free text.
type Provider struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Specialty    string  `json:"specialty"`
	Location     string  `json:"location"`
	Rating       float64 `json:"rating"`
	Availability string  `json:"availability"`
	WaitTime     string  `json:"waitTime"`
}

// Valid reports whether p is renderable: named, with a rating in range.
func (p Provider) Valid() bool {
	return strings.TrimSpace(p.Name) != "" && p.Rating >= 0 && p.Rating <= 5
}

// Directory lists every provider. Implementations are safe for concurrent use.
type Directory interface {
	List(ctx context.Context) ([]Provider, error)
}

// Query narrows a listing. Empty fields match everything.
type Query struct {
	// Text is matched case-insensitively against name and location.
	Text string

	// Specialty must equal the provider's specialty exactly, unless it is
	// empty or AllSpecialties.
	Specialty string
}

// Filter returns the providers matching q, preserving order.
func Filter(list []Provider, q Query) []Provider {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	spec := strings.TrimSpace(q.Specialty)
	anySpec := spec == "" || spec == AllSpecialties

	out := make([]Provider, 0, len(list))
	for _, p := range list {
		if !anySpec && p.Specialty != spec {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Name), text) &&
			!strings.Contains(strings.ToLower(p.Location), text) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Find returns the provider with the given id.
func Find(list []Provider, id int) (Provider, bool) {
	i := slices.IndexFunc(list, func(p Provider) bool { return p.ID == id })
	if i < 0 {
		return Provider{}, false
	}
	return list[i], true
}

// Specialties returns AllSpecialties followed by each distinct specialty in
// first-seen order.
func Specialties(list []Provider) []string {
	out := []string{AllSpecialties}
	for _, p := range list {
		if p.Specialty != "" && !slices.Contains(out, p.Specialty) {
			out = append(out, p.Specialty)
		}
	}
	return out
}

// sortByID orders a listing by id so responses are stable.
func sortByID(list []Provider) {
	slices.SortStableFunc(list, func(a, b Provider) int { return cmp.Compare(a.ID, b.ID) })
}
