package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"satpam/internal/location"
)

// ErrReportNotFound is returned when a report id does not resolve.
var ErrReportNotFound = errors.New("report not found")

// Guard is a person scheduled on a checking day.
type Guard struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
}

// SelfieCheck is the worker's verdict on a report's selfie.
type SelfieCheck struct {
	ReportID      string
	Outcome       string
	FacesDetected int
	Score         *float64
	Detail        string
}

// Repository persists reports and reads schedules for reconciliation.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertReport writes a new report.
func (r *Repository) InsertReport(ctx context.Context, rep Report) (Report, error) {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.SubmittedAt.IsZero() {
		rep.SubmittedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO check_area_reports (id, person_id, location_id, submitted_at, evidence_url)
		VALUES ($1, $2, $3, $4, $5)
	`, rep.ID, rep.PersonID, rep.LocationID, rep.SubmittedAt, rep.EvidenceURL)
	if err != nil {
		return Report{}, err
	}
	return rep, nil
}

// GetReport returns a single report by id.
func (r *Repository) GetReport(ctx context.Context, id string) (Report, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, person_id, location_id, submitted_at, evidence_url
		FROM check_area_reports WHERE id = $1
	`, id)
	var rep Report
	if err := row.Scan(&rep.ID, &rep.PersonID, &rep.LocationID, &rep.SubmittedAt, &rep.EvidenceURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrReportNotFound
		}
		return Report{}, err
	}
	return rep, nil
}

// ReportsBetween returns reports submitted in [start, end), oldest first,
// optionally for one person.
func (r *Repository) ReportsBetween(ctx context.Context, start, end time.Time, personID string) ([]Report, error) {
	query := `SELECT id, person_id, location_id, submitted_at, evidence_url FROM check_area_reports`
	args := []any{start, end}
	clauses := []string{"submitted_at >= $1", "submitted_at < $2"}
	if personID != "" {
		clauses = append(clauses, "person_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, personID)
	}
	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY submitted_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.PersonID, &rep.LocationID, &rep.SubmittedAt, &rep.EvidenceURL); err != nil {
			return nil, err
		}
		res = append(res, rep)
	}
	return res, rows.Err()
}

// AssignedLocations returns the distinct locations scheduled on date, for one
// person or, with an empty personID, for anyone. Deleted locations come back
// as location.Unknown.
func (r *Repository) AssignedLocations(ctx context.Context, date, personID string) ([]location.Location, error) {
	query := `
		SELECT DISTINCT s.location_id, l.id IS NOT NULL,
		       COALESCE(l.name, ''), COALESCE(l.building, ''), COALESCE(l.qr_payload, '')
		FROM schedules s
		LEFT JOIN locations l ON l.id = s.location_id
		WHERE s.schedule_date = $1`
	args := []any{date}
	if personID != "" {
		query += ` AND s.person_id = $2`
		args = append(args, personID)
	}
	query += ` ORDER BY 4, 3, 1`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []location.Location
	for rows.Next() {
		var l location.Location
		if err := rows.Scan(&l.ID, &l.Known, &l.Name, &l.Building, &l.QRPayload); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// ScheduledGuards returns everyone with at least one schedule on date.
func (r *Repository) ScheduledGuards(ctx context.Context, date string) ([]Guard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, TRIM(p.first_name || ' ' || p.last_name)
		FROM schedules s
		JOIN persons p ON p.id = s.person_id
		WHERE s.schedule_date = $1
		ORDER BY 2, 1
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Guard
	for rows.Next() {
		var g Guard
		if err := rows.Scan(&g.PersonID, &g.Name); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// SaveSelfieCheck records the worker's verdict, replacing an earlier one.
func (r *Repository) SaveSelfieCheck(ctx context.Context, c SelfieCheck) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO selfie_checks (report_id, outcome, faces_detected, score, detail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (report_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			faces_detected = EXCLUDED.faces_detected,
			score = EXCLUDED.score,
			detail = EXCLUDED.detail,
			checked_at = NOW()
	`, c.ReportID, c.Outcome, c.FacesDetected, c.Score, c.Detail)
	return err
}
