package roster

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"satpam/internal/metrics"
	"satpam/internal/personnel"
	"satpam/internal/schedule"
)

// Resolve maps roster names to person ids. Any unknown name rejects the
// whole roster.
func Resolve(rows []Row, idx personnel.Index, sel schedule.Selector) ([]schedule.Entry, error) {
	entries := make([]schedule.Entry, 0, len(rows))
	verr := &ValidationError{}
	for _, r := range rows {
		id, ok := idx.Lookup(r.Name)
		if !ok {
			verr.Problems = append(verr.Problems, Problem{Line: r.Line, Message: fmt.Sprintf("unknown guard %q", r.Name)})
			continue
		}
		entries = append(entries, schedule.Entry{Date: r.Date, PersonID: id, Selector: sel})
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return entries, nil
}

// PeopleLister supplies the personnel directory.
type PeopleLister interface {
	List(ctx context.Context) ([]personnel.Person, error)
}

// Applier writes planned schedule entries.
type Applier interface {
	Apply(ctx context.Context, entries []schedule.Entry) (schedule.Outcome, error)
}

// Result is an import outcome plus directory name collisions seen while
// resolving.
type Result struct {
	schedule.Outcome
	Rows     int                   `json:"rows"`
	Warnings []personnel.Collision `json:"warnings"`
}

// Importer turns an uploaded roster into schedule rows.
type Importer struct {
	people  PeopleLister
	applier Applier
	log     *zap.Logger
}

// NewImporter wires an importer.
func NewImporter(people PeopleLister, applier Applier, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{people: people, applier: applier, log: log}
}

// Import parses, resolves and applies a roster file. Validation failures
// return a *ValidationError and write nothing.
func (im *Importer) Import(ctx context.Context, filename string, data []byte, sel schedule.Selector) (Result, error) {
	res, err := im.run(ctx, filename, data, sel)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrUnsupportedFormat):
		metrics.RosterImports.WithLabelValues("invalid").Inc()
	case err != nil:
		metrics.RosterImports.WithLabelValues("error").Inc()
	default:
		metrics.RosterImports.WithLabelValues("ok").Inc()
	}
	return res, err
}

func (im *Importer) run(ctx context.Context, filename string, data []byte, sel schedule.Selector) (Result, error) {
	rows, err := Parse(filename, data)
	if err != nil {
		return Result{}, err
	}

	people, err := im.people.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list personnel: %w", err)
	}
	idx := personnel.BuildIndex(people)
	for _, w := range idx.Warnings {
		im.log.Warn("duplicate personnel name, last entry wins",
			zap.String("name", w.Name), zap.Strings("person_ids", w.PersonIDs))
	}

	entries, err := Resolve(rows, idx, sel)
	if err != nil {
		return Result{}, err
	}

	out, err := im.applier.Apply(ctx, entries)
	res := Result{Outcome: out, Rows: len(rows), Warnings: idx.Warnings}
	if res.Warnings == nil {
		res.Warnings = []personnel.Collision{}
	}
	if err != nil {
		return res, err
	}
	im.log.Info("roster imported",
		zap.String("file", filename),
		zap.Int("rows", len(rows)),
		zap.Int("inserted", len(out.Inserted)),
		zap.Int("skipped", len(out.Skipped)))
	return res, nil
}
