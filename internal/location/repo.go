package location

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a location id or QR payload does not resolve.
var ErrNotFound = errors.New("location not found")

// QRPrefix namespaces generated QR payloads.
const QRPrefix = "satpam:loc:"

// Repository persists locations in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const selectColumns = `SELECT id, name, building, qr_payload, created_at FROM locations`

func scan(row interface{ Scan(...any) error }) (Location, error) {
	var l Location
	if err := row.Scan(&l.ID, &l.Name, &l.Building, &l.QRPayload, &l.CreatedAt); err != nil {
		return Location{}, err
	}
	l.Known = true
	return l, nil
}

// List returns every location ordered by building and name.
func (r *Repository) List(ctx context.Context) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY building, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Location
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// Get returns a single location by id.
func (r *Repository) Get(ctx context.Context, id string) (Location, error) {
	l, err := scan(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Location{}, ErrNotFound
	}
	return l, err
}

// GetByQR resolves a scanned QR payload.
func (r *Repository) GetByQR(ctx context.Context, payload string) (Location, error) {
	l, err := scan(r.db.QueryRowContext(ctx, selectColumns+` WHERE qr_payload = $1`, payload))
	if errors.Is(err, sql.ErrNoRows) {
		return Location{}, ErrNotFound
	}
	return l, err
}

// Create inserts a location and binds a fresh QR payload to it.
func (r *Repository) Create(ctx context.Context, name string, building Building) (Location, error) {
	l := Location{
		ID:        uuid.NewString(),
		Name:      name,
		Building:  building,
		QRPayload: QRPrefix + uuid.NewString(),
		Known:     true,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO locations (id, name, building, qr_payload)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, l.ID, l.Name, l.Building, l.QRPayload)
	if err := row.Scan(&l.CreatedAt); err != nil {
		return Location{}, err
	}
	return l, nil
}

// Update changes name and building. The QR payload is never rewritten.
func (r *Repository) Update(ctx context.Context, id, name string, building Building) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE locations SET name = $2, building = $3, updated_at = $4
		WHERE id = $1
	`, id, name, building, time.Now().UTC())
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// Delete removes a location. Schedules pointing at it become orphans.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
