package testevents

import (
	"sort"

	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/internal/domain/types"
)

// Verification measures how well groups recover the generating incidents.
type Verification struct {
	Groups     int
	PureGroups int // groups whose members all share one incident
	// Split lists incidents whose alerts landed in more than one group.
	Split []string
	// Unassigned counts events that no group contains.
	Unassigned int
}

// Verify compares groups against the incident tags of events.
func Verify(events []model.Event, groups []types.GroupSummary) Verification {
	incidentByID := make(map[string]string, len(events))
	for _, e := range events {
		incidentByID[e.ID] = IncidentOf(e)
	}

	v := Verification{Groups: len(groups)}
	groupsPerIncident := make(map[string]map[int]struct{})
	assigned := make(map[string]struct{}, len(events))
	for gi, g := range groups {
		seen := make(map[string]struct{})
		for _, id := range g.EventIDs {
			inc := incidentByID[id]
			seen[inc] = struct{}{}
			assigned[id] = struct{}{}
			if groupsPerIncident[inc] == nil {
				groupsPerIncident[inc] = make(map[int]struct{})
			}
			groupsPerIncident[inc][gi] = struct{}{}
		}
		if len(seen) == 1 {
			v.PureGroups++
		}
	}
	for inc, gs := range groupsPerIncident {
		if len(gs) > 1 {
			v.Split = append(v.Split, inc)
		}
	}
	sort.Strings(v.Split)
	for _, e := range events {
		if _, ok := assigned[e.ID]; !ok {
			v.Unassigned++
		}
	}
	return v
}
