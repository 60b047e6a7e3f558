package providers

import (
	"context"
	"slices"
)

// Static is a fixed in-memory directory.
type Static struct {
	providers []Provider
}

// NewStatic returns a directory over a copy of list, ordered by id.
func NewStatic(list []Provider) *Static {
	cp := slices.Clone(list)
	sortByID(cp)
	return &Static{providers: cp}
}

// Default returns the demo directory used when no external directory is configured.
func Default() *Static {
	return NewStatic([]Provider{
		{ID: 1, Name: "Dr. Sarah Johnson", Specialty: "Family Medicine", Location: "Toronto General Hospital", Rating: 4.8, Availability: "Available Today", WaitTime: "2 days"},
		{ID: 2, Name: "Dr. Michael Chen", Specialty: "Cardiology", Location: "Sunnybrook Health Sciences", Rating: 4.9, Availability: "Next Week", WaitTime: "7 days"},
		{ID: 3, Name: "Dr. Emily Rodriguez", Specialty: "Pediatrics", Location: "SickKids Hospital", Rating: 4.7, Availability: "Available Tomorrow", WaitTime: "1 day"},
		{ID: 4, Name: "Dr. James Wilson", Specialty: "Orthopedics", Location: "Mount Sinai Hospital", Rating: 4.6, Availability: "Next Month", WaitTime: "30 days"},
	})
}

// List implements Directory. The returned slice is a copy.
func (s *Static) List(context.Context) ([]Provider, error) {
	return slices.Clone(s.providers), nil
}
