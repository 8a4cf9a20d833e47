package schedule

import (
	"fmt"

	"satpam/internal/location"
)

// Skip reasons reported by Plan.
const (
	ReasonDuplicateAssignment = "duplicate-assignment"
	ReasonNoMatchingLocations = "no-matching-locations"
)

type selectorKind int

const (
	selectAll selectorKind = iota
	selectBuilding
)

// Selector picks the locations an entry expands to: every building, or one.
type Selector struct {
	kind     selectorKind
	building location.Building
}

// AllBuildings selects every known location.
func AllBuildings() Selector { return Selector{kind: selectAll} }

// InBuilding selects the locations tagged with b.
func InBuilding(b location.Building) Selector {
	return Selector{kind: selectBuilding, building: b}
}

// ParseSelector maps a form value to a Selector.
func ParseSelector(s string) (Selector, error) {
	switch s {
	case "All Buildings", "all":
		return AllBuildings(), nil
	}
	b, err := location.ParseBuilding(s)
	if err != nil || b == location.BuildingNone {
		return Selector{}, fmt.Errorf("unknown building selector %q", s)
	}
	return InBuilding(b), nil
}

func (s Selector) String() string {
	switch s.kind {
	case selectAll:
		return "All Buildings"
	case selectBuilding:
		return string(s.building)
	}
	panic("schedule: unhandled selector kind")
}

// MarshalText renders the selector in its form-value spelling.
func (s Selector) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s Selector) resolve(known []location.Location) []location.Location {
	var out []location.Location
	for _, l := range known {
		switch s.kind {
		case selectAll:
			out = append(out, l)
		case selectBuilding:
			if l.Building == s.building {
				out = append(out, l)
			}
		default:
			panic("schedule: unhandled selector kind")
		}
	}
	return out
}

// Entry is one roster line: a person assigned to a selector on a date.
type Entry struct {
	Date     string   `json:"date"`
	PersonID string   `json:"person_id"`
	Selector Selector `json:"building"`
}

// Row is a single (date, person, location) schedule.
type Row struct {
	Date       string `json:"schedule_date"`
	PersonID   string `json:"person_id"`
	LocationID string `json:"location_id"`
}

// Skip is an entry Plan declined to expand.
type Skip struct {
	Entry  Entry  `json:"entry"`
	Reason string `json:"reason"`
}

// Batch groups the rows produced by one entry; they are written together.
type Batch struct {
	Entry Entry `json:"entry"`
	Rows  []Row `json:"rows"`
}

// Result is the output of Plan.
type Result struct {
	Batches []Batch `json:"batches"`
	Skipped []Skip  `json:"skipped"`
}

// Inserts flattens the batches into rows, in entry order.
func (r Result) Inserts() []Row {
	var rows []Row
	for _, b := range r.Batches {
		rows = append(rows, b.Rows...)
	}
	return rows
}

// Assignment keys the one-batch-per-day rule.
type Assignment struct {
	PersonID string
	Date     string
}

// AssignmentSet is the set of (person, date) pairs that already have schedules.
type AssignmentSet map[Assignment]struct{}

// NewAssignmentSet builds a set from pairs.
func NewAssignmentSet(pairs ...Assignment) AssignmentSet {
	s := make(AssignmentSet, len(pairs))
	for _, p := range pairs {
		s.Add(p)
	}
	return s
}

// AssignmentsFromRows collects the (person, date) pairs of rows.
func AssignmentsFromRows(rows []Row) AssignmentSet {
	s := make(AssignmentSet)
	for _, r := range rows {
		s.Add(Assignment{PersonID: r.PersonID, Date: r.Date})
	}
	return s
}

func (s AssignmentSet) Add(a Assignment) { s[a] = struct{}{} }

func (s AssignmentSet) Has(a Assignment) bool {
	_, ok := s[a]
	return ok
}

// Plan expands entries into schedule rows. A person gets at most one batch per
// date: entries whose (person, date) already exists, in existing or earlier in
// entries, are skipped whole. Plan does not modify existing.
func Plan(entries []Entry, known []location.Location, existing AssignmentSet) Result {
	var res Result
	produced := make(AssignmentSet)

	for _, e := range entries {
		key := Assignment{PersonID: e.PersonID, Date: e.Date}
		if existing.Has(key) || produced.Has(key) {
			res.Skipped = append(res.Skipped, Skip{Entry: e, Reason: ReasonDuplicateAssignment})
			continue
		}

		targets := e.Selector.resolve(known)
		if len(targets) == 0 {
			res.Skipped = append(res.Skipped, Skip{Entry: e, Reason: ReasonNoMatchingLocations})
			continue
		}

		batch := Batch{Entry: e, Rows: make([]Row, 0, len(targets))}
		for _, l := range targets {
			batch.Rows = append(batch.Rows, Row{Date: e.Date, PersonID: e.PersonID, LocationID: l.ID})
		}
		produced.Add(key)
		res.Batches = append(res.Batches, batch)
	}
	return res
}
