package personnel

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a person id does not resolve.
var ErrNotFound = errors.New("person not found")

// Repository persists people in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns all people ordered by name.
func (r *Repository) List(ctx context.Context) ([]Person, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, id_number, role, created_at
		FROM persons
		ORDER BY first_name, last_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.IDNumber, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// Get returns a single person by id.
func (r *Repository) Get(ctx context.Context, id string) (Person, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, id_number, role, created_at
		FROM persons WHERE id = $1
	`, id)
	var p Person
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.IDNumber, &p.Role, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Person{}, ErrNotFound
		}
		return Person{}, err
	}
	return p, nil
}

// ExistingIDs returns the subset of ids present in the directory.
// Callers pass well-formed uuids; anything else fails the cast server-side.
func (r *Repository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM persons WHERE id IN (`+strings.Join(marks, ", ")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

// Create provisions a person. An empty ID gets a fresh uuid; a provided one
// links the row to an identity-provider account.
func (r *Repository) Create(ctx context.Context, p Person) (Person, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO persons (id, first_name, last_name, id_number, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, p.ID, p.FirstName, p.LastName, p.IDNumber, p.Role)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return Person{}, err
	}
	return p, nil
}

// Update edits profile fields.
func (r *Repository) Update(ctx context.Context, p Person) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE persons
		SET first_name = $2, last_name = $3, id_number = $4, role = $5, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.FirstName, p.LastName, p.IDNumber, p.Role)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a person; their schedules go with them (ON DELETE CASCADE).
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}
