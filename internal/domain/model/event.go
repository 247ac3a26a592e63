// Package model contains domain models passed between layers.
package model

import "time"

// Event is a correlatable record produced by an event source.
// Absent fields are the zero value: an empty title/text compares as the
// empty string and nil tags as the empty set.
type Event struct {
	ID        string    `json:"id,omitempty" yaml:"id"`               // opaque, carried for traceability only
	Title     string    `json:"title,omitempty" yaml:"title"`         // short summary line
	Text      string    `json:"text,omitempty" yaml:"text"`           // free-text body
	Tags      []string  `json:"tags,omitempty" yaml:"tags"`           // order irrelevant, duplicates collapse
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp"` // zero when unknown
	Source    string    `json:"source,omitempty" yaml:"source"`       // name of the producing source
}

// Group is an ordered set of related events. The first member is the
// representative every later candidate was compared against.
type Group struct {
	Events []Event `json:"events"`
}

// Representative returns the founding event of the group.
// It returns false for an empty group.
func (g Group) Representative() (Event, bool) {
	if len(g.Events) == 0 {
		return Event{}, false
	}
	return g.Events[0], true
}

// Size returns the number of events in the group.
func (g Group) Size() int { return len(g.Events) }

// IDs returns member IDs in membership order.
func (g Group) IDs() []string {
	ids := make([]string, len(g.Events))
	for i, e := range g.Events {
		ids[i] = e.ID
	}
	return ids
}

// TotalEvents sums group sizes.
func TotalEvents(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += g.Size()
	}
	return n
}
