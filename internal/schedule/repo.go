package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"satpam/internal/location"
	"satpam/internal/store"
)

var (
	// ErrDuplicateAssignment means the person already has schedules on that date.
	ErrDuplicateAssignment = errors.New("person already assigned on that date")

	// ErrNotFound means no schedule matched the key.
	ErrNotFound = errors.New("schedule not found")
)

// Assigned is a schedule row joined with its person and location for display.
type Assigned struct {
	Row
	PersonName string            `json:"person_name"`
	Location   location.Location `json:"location"`
}

// Repository persists schedules in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ExistingAssignments returns the (person, date) pairs with at least one
// schedule among dates.
func (r *Repository) ExistingAssignments(ctx context.Context, dates []string) (AssignmentSet, error) {
	set := make(AssignmentSet)
	if len(dates) == 0 {
		return set, nil
	}
	lo, hi := dates[0], dates[0]
	want := make(map[string]bool, len(dates))
	for _, d := range dates {
		want[d] = true
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT person_id, to_char(schedule_date, 'YYYY-MM-DD')
		FROM schedules
		WHERE schedule_date BETWEEN $1 AND $2
	`, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.PersonID, &a.Date); err != nil {
			return nil, err
		}
		if want[a.Date] {
			set.Add(a)
		}
	}
	return set, rows.Err()
}

// ApplyBatch writes every row of one planned entry in a single transaction.
// The (person, date) pair is locked and re-checked first so concurrent imports
// cannot both insert; the loser gets ErrDuplicateAssignment.
func (r *Repository) ApplyBatch(ctx context.Context, b Batch) error {
	if len(b.Rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockAssignment(ctx, tx, b.Entry.PersonID, b.Entry.Date); err != nil {
		return err
	}
	if taken, err := assignmentExists(ctx, tx, b.Entry.PersonID, b.Entry.Date); err != nil {
		return err
	} else if taken {
		return ErrDuplicateAssignment
	}

	values := make([]string, 0, len(b.Rows))
	args := make([]any, 0, len(b.Rows)*4)
	for i, row := range b.Rows {
		n := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
		args = append(args, uuid.NewString(), row.Date, row.PersonID, row.LocationID)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schedules (id, schedule_date, person_id, location_id) VALUES `+strings.Join(values, ", "),
		args...)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateAssignment
		}
		return err
	}
	return tx.Commit()
}

func lockAssignment(ctx context.Context, tx *sql.Tx, personID, date string) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, personID, date)
	return err
}

func assignmentExists(ctx context.Context, tx *sql.Tx, personID, date string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM schedules WHERE person_id = $1 AND schedule_date = $2)
	`, personID, date).Scan(&exists)
	return exists, err
}

// ListByDate returns schedules for a date, optionally for one person. Rows
// whose location was deleted come back with Location.Known == false.
func (r *Repository) ListByDate(ctx context.Context, date, personID string) ([]Assigned, error) {
	query := `
		SELECT to_char(s.schedule_date, 'YYYY-MM-DD'), s.person_id,
		       TRIM(p.first_name || ' ' || p.last_name),
		       s.location_id, l.id IS NOT NULL,
		       COALESCE(l.name, ''), COALESCE(l.building, '')
		FROM schedules s
		JOIN persons p ON p.id = s.person_id
		LEFT JOIN locations l ON l.id = s.location_id
		WHERE s.schedule_date = $1`
	args := []any{date}
	if personID != "" {
		query += ` AND s.person_id = $2`
		args = append(args, personID)
	}
	query += ` ORDER BY p.first_name, p.last_name, l.building, l.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Assigned
	for rows.Next() {
		var a Assigned
		if err := rows.Scan(&a.Date, &a.PersonID, &a.PersonName, &a.LocationID,
			&a.Location.Known, &a.Location.Name, &a.Location.Building); err != nil {
			return nil, err
		}
		a.Location.ID = a.LocationID
		res = append(res, a)
	}
	return res, rows.Err()
}

// DeleteAssignment removes every schedule a person has on a date.
func (r *Repository) DeleteAssignment(ctx context.Context, personID, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE person_id = $1 AND schedule_date = $2`, personID, date)
	if err != nil {
		return 0, err
	}
	return affected(res)
}

// DeleteRow removes a single (person, date, location) schedule.
func (r *Repository) DeleteRow(ctx context.Context, row Row) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM schedules WHERE person_id = $1 AND schedule_date = $2 AND location_id = $3
	`, row.PersonID, row.Date, row.LocationID)
	if err != nil {
		return 0, err
	}
	return affected(res)
}

// MoveAssignment re-keys a person's schedules for a date onto another person
// and/or date. The target pair must be free.
func (r *Repository) MoveAssignment(ctx context.Context, from, to Assignment) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockAssignment(ctx, tx, to.PersonID, to.Date); err != nil {
		return 0, err
	}
	if taken, err := assignmentExists(ctx, tx, to.PersonID, to.Date); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrDuplicateAssignment
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE schedules SET person_id = $3, schedule_date = $4
		WHERE person_id = $1 AND schedule_date = $2
	`, from.PersonID, from.Date, to.PersonID, to.Date)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return 0, ErrDuplicateAssignment
		}
		return 0, err
	}
	n, err := affected(res)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}
