package attendance

import (
	"time"

	"satpam/internal/checkday"
	"satpam/internal/location"
)

// Report is one scan-plus-selfie event. Reports are never updated.
type Report struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"person_id"`
	LocationID  string    `json:"location_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	EvidenceURL string    `json:"evidence_url"`
}

// Status is the reconciled state of one assigned location.
type Status struct {
	Location         location.Location `json:"location"`
	IsChecked        bool              `json:"is_checked"`
	LastCheckedAt    *time.Time        `json:"last_checked_at"`
	LastCheckedLocal string            `json:"last_checked_local,omitempty"`
	EvidenceURL      *string           `json:"evidence_url"`
	CheckedBy        *string           `json:"checked_by"`
	ReportID         *string           `json:"report_id,omitempty"`
}

// Reconcile returns one status per assigned location, in input order. When
// personID is set only that person's reports count; otherwise any report does.
// The latest report wins; on equal timestamps the later one in reports wins.
func Reconcile(assigned []location.Location, reports []Report, personID string) []Status {
	latest := make(map[string]int, len(assigned))
	for i, r := range reports {
		if personID != "" && r.PersonID != personID {
			continue
		}
		if j, ok := latest[r.LocationID]; ok && r.SubmittedAt.Before(reports[j].SubmittedAt) {
			continue
		}
		latest[r.LocationID] = i
	}

	out := make([]Status, 0, len(assigned))
	for _, loc := range assigned {
		st := Status{Location: loc}
		if i, ok := latest[loc.ID]; ok {
			r := reports[i]
			at := r.SubmittedAt
			st.IsChecked = true
			st.LastCheckedAt = &at
			st.LastCheckedLocal = checkday.FormatLocal(at)
			st.EvidenceURL = &r.EvidenceURL
			st.CheckedBy = &r.PersonID
			st.ReportID = &r.ID
		}
		out = append(out, st)
	}
	return out
}

// Summary counts checked locations.
type Summary struct {
	Assigned int `json:"assigned"`
	Checked  int `json:"checked"`
}

// Summarize folds statuses into counts.
func Summarize(statuses []Status) Summary {
	s := Summary{Assigned: len(statuses)}
	for _, st := range statuses {
		if st.IsChecked {
			s.Checked++
		}
	}
	return s
}
