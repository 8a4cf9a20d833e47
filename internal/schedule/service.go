package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"satpam/internal/checkday"
	"satpam/internal/location"
	"satpam/internal/metrics"
)

// ErrInvalidEntry marks input that was rejected before any write.
var ErrInvalidEntry = errors.New("invalid schedule entry")

// Store is the persistence the service needs.
type Store interface {
	ExistingAssignments(ctx context.Context, dates []string) (AssignmentSet, error)
	ApplyBatch(ctx context.Context, b Batch) error
}

// LocationLister supplies the known locations.
type LocationLister interface {
	List(ctx context.Context) ([]location.Location, error)
}

// PersonChecker reports which of the given person ids exist.
type PersonChecker interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// Outcome reports what an apply call wrote and skipped.
type Outcome struct {
	Inserted []Row  `json:"inserted"`
	Skipped  []Skip `json:"skipped"`
}

// Service plans roster entries and writes them entry by entry.
type Service struct {
	store     Store
	locations LocationLister
	people    PersonChecker
	log       *zap.Logger
}

// NewService creates a service backed by a store.
func NewService(store Store, locations LocationLister, people PersonChecker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, locations: locations, people: people, log: log}
}

// Validate checks every entry before anything is planned.
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidEntry)
	}
	for i, e := range entries {
		if e.PersonID == "" {
			return fmt.Errorf("%w: entry %d: person required", ErrInvalidEntry, i+1)
		}
		if _, err := uuid.Parse(e.PersonID); err != nil {
			return fmt.Errorf("%w: entry %d: person id %q is not a uuid", ErrInvalidEntry, i+1, e.PersonID)
		}
		if _, err := time.Parse(checkday.LabelLayout, e.Date); err != nil {
			return fmt.Errorf("%w: entry %d: date %q is not YYYY-MM-DD", ErrInvalidEntry, i+1, e.Date)
		}
	}
	return nil
}

// Apply validates, plans and persists entries. Unknown persons reject the
// whole batch before anything is written. Conflicts become skips and the
// batch continues; a store failure stops the batch and is returned together
// with what was already written.
func (s *Service) Apply(ctx context.Context, entries []Entry) (Outcome, error) {
	if err := Validate(entries); err != nil {
		return Outcome{}, err
	}
	if err := s.checkPeople(ctx, entries); err != nil {
		return Outcome{}, err
	}

	known, err := s.locations.List(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list locations: %w", err)
	}
	existing, err := s.store.ExistingAssignments(ctx, distinctDates(entries))
	if err != nil {
		return Outcome{}, fmt.Errorf("load existing assignments: %w", err)
	}

	plan := Plan(entries, known, existing)
	out := Outcome{Inserted: []Row{}, Skipped: append([]Skip{}, plan.Skipped...)}

	for _, b := range plan.Batches {
		err := s.store.ApplyBatch(ctx, b)
		switch {
		case errors.Is(err, ErrDuplicateAssignment):
			s.log.Info("assignment appeared concurrently, skipping",
				zap.String("person_id", b.Entry.PersonID), zap.String("date", b.Entry.Date))
			out.Skipped = append(out.Skipped, Skip{Entry: b.Entry, Reason: ReasonDuplicateAssignment})
		case err != nil:
			s.record(out)
			return out, fmt.Errorf("write schedules for %s on %s: %w", b.Entry.PersonID, b.Entry.Date, err)
		default:
			out.Inserted = append(out.Inserted, b.Rows...)
		}
	}

	s.record(out)
	s.log.Info("schedules applied",
		zap.Int("entries", len(entries)),
		zap.Int("inserted", len(out.Inserted)),
		zap.Int("skipped", len(out.Skipped)))
	return out, nil
}

func (s *Service) checkPeople(ctx context.Context, entries []Entry) error {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if !seen[e.PersonID] {
			seen[e.PersonID] = true
			ids = append(ids, e.PersonID)
		}
	}
	found, err := s.people.ExistingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("check persons: %w", err)
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unknown person %s", ErrInvalidEntry, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) record(out Outcome) {
	metrics.ScheduleRowsInserted.Add(float64(len(out.Inserted)))
	for _, sk := range out.Skipped {
		metrics.ScheduleEntriesSkipped.WithLabelValues(sk.Reason).Inc()
	}
}

func distinctDates(entries []Entry) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, e := range entries {
		if !seen[e.Date] {
			seen[e.Date] = true
			dates = append(dates, e.Date)
		}
	}
	return dates
}
