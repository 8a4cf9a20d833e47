package attendance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"satpam/internal/checkday"
	"satpam/internal/location"
	"satpam/internal/metrics"
	"satpam/internal/personnel"
	"satpam/internal/queue"
)

var (
	ErrUnknownQR        = errors.New("qr code does not belong to any location")
	ErrNotAssigned      = errors.New("location is not on your schedule for this checking day")
	ErrEvidenceRequired = errors.New("evidence photo url required")
)

// Store is the persistence the service needs.
type Store interface {
	InsertReport(ctx context.Context, rep Report) (Report, error)
	ReportsBetween(ctx context.Context, start, end time.Time, personID string) ([]Report, error)
	AssignedLocations(ctx context.Context, date, personID string) ([]location.Location, error)
	ScheduledGuards(ctx context.Context, date string) ([]Guard, error)
}

// LocationResolver maps a scanned QR payload to its location.
type LocationResolver interface {
	GetByQR(ctx context.Context, payload string) (location.Location, error)
}

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	PersonID string
	Role     personnel.Role
}

// View is a reconciled checking day for one person or for everyone.
type View struct {
	Day      checkday.Day `json:"day"`
	PersonID string       `json:"person_id,omitempty"`
	Name     string       `json:"name,omitempty"`
	Statuses []Status     `json:"statuses"`
	Summary  Summary      `json:"summary"`
}

// Service coordinates report submission and attendance views.
type Service struct {
	store     Store
	locations LocationResolver
	queue     queue.Queue
	now       func() time.Time
	log       *zap.Logger
}

// NewService creates a service. q may be nil when no worker consumes reports.
func NewService(store Store, locations LocationResolver, q queue.Queue, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, locations: locations, queue: q, now: time.Now, log: log}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today resolves the current checking day.
func (s *Service) Today() (checkday.Day, error) {
	return checkday.Resolve(s.now())
}

// Day resolves an explicit YYYY-MM-DD label, or today when label is empty.
func (s *Service) Day(label string) (checkday.Day, error) {
	if label == "" {
		return s.Today()
	}
	return checkday.ForDate(label)
}

// Submit records a scan of qrPayload with an already uploaded evidence photo.
func (s *Service) Submit(ctx context.Context, actor Actor, qrPayload, evidenceURL string) (Report, error) {
	if u, err := url.Parse(evidenceURL); err != nil || evidenceURL == "" || (u.Scheme != "https" && u.Scheme != "http") {
		metrics.ReportsRejected.WithLabelValues("evidence").Inc()
		return Report{}, ErrEvidenceRequired
	}

	loc, err := s.locations.GetByQR(ctx, qrPayload)
	if errors.Is(err, location.ErrNotFound) {
		metrics.ReportsRejected.WithLabelValues("unknown_qr").Inc()
		return Report{}, ErrUnknownQR
	}
	if err != nil {
		return Report{}, fmt.Errorf("resolve qr: %w", err)
	}

	now := s.now()
	day, err := checkday.Resolve(now)
	if err != nil {
		return Report{}, err
	}

	assigned, err := s.store.AssignedLocations(ctx, day.Label, actor.PersonID)
	if err != nil {
		return Report{}, fmt.Errorf("load schedule: %w", err)
	}
	if !containsLocation(assigned, loc.ID) {
		metrics.ReportsRejected.WithLabelValues("not_assigned").Inc()
		return Report{}, ErrNotAssigned
	}

	rep, err := s.store.InsertReport(ctx, Report{
		PersonID:    actor.PersonID,
		LocationID:  loc.ID,
		SubmittedAt: now.UTC(),
		EvidenceURL: evidenceURL,
	})
	if err != nil {
		return Report{}, fmt.Errorf("insert report: %w", err)
	}
	metrics.ReportsSubmitted.Inc()

	if s.queue != nil {
		msg := queue.Message{Type: queue.TypeReportSubmitted, Subject: rep.ID}
		if err := s.queue.Publish(ctx, msg); err != nil {
			s.log.Warn("queue publish failed", zap.String("report_id", rep.ID), zap.Error(err))
		}
	}

	s.log.Info("report submitted",
		zap.String("report_id", rep.ID),
		zap.String("person_id", rep.PersonID),
		zap.String("location_id", rep.LocationID),
		zap.String("checking_day", day.Label))
	return rep, nil
}

// Dashboard is the per-guard view: that person's locations and their own reports.
func (s *Service) Dashboard(ctx context.Context, personID, label string) (View, error) {
	day, err := s.Day(label)
	if err != nil {
		return View{}, err
	}
	assigned, err := s.store.AssignedLocations(ctx, day.Label, personID)
	if err != nil {
		return View{}, fmt.Errorf("load schedule: %w", err)
	}
	reports, err := s.store.ReportsBetween(ctx, day.Start, day.End, personID)
	if err != nil {
		return View{}, fmt.Errorf("load reports: %w", err)
	}
	return newView(day, personID, Reconcile(assigned, reports, personID)), nil
}

// Audit is the per-location view: every location scheduled that day, checked
// by anyone.
func (s *Service) Audit(ctx context.Context, label string) (View, error) {
	day, err := s.Day(label)
	if err != nil {
		return View{}, err
	}
	assigned, err := s.store.AssignedLocations(ctx, day.Label, "")
	if err != nil {
		return View{}, fmt.Errorf("load schedule: %w", err)
	}
	reports, err := s.store.ReportsBetween(ctx, day.Start, day.End, "")
	if err != nil {
		return View{}, fmt.Errorf("load reports: %w", err)
	}
	return newView(day, "", Reconcile(assigned, reports, "")), nil
}

// Overview builds the per-guard view for everyone scheduled that day.
func (s *Service) Overview(ctx context.Context, label string) ([]View, error) {
	day, err := s.Day(label)
	if err != nil {
		return nil, err
	}
	guards, err := s.store.ScheduledGuards(ctx, day.Label)
	if err != nil {
		return nil, fmt.Errorf("load guards: %w", err)
	}
	reports, err := s.store.ReportsBetween(ctx, day.Start, day.End, "")
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	views := make([]View, 0, len(guards))
	for _, g := range guards {
		assigned, err := s.store.AssignedLocations(ctx, day.Label, g.PersonID)
		if err != nil {
			return nil, fmt.Errorf("load schedule for %s: %w", g.PersonID, err)
		}
		v := newView(day, g.PersonID, Reconcile(assigned, reports, g.PersonID))
		v.Name = g.Name
		views = append(views, v)
	}
	return views, nil
}

// Reports lists the reports inside a checking day.
func (s *Service) Reports(ctx context.Context, label, personID string) (checkday.Day, []Report, error) {
	day, err := s.Day(label)
	if err != nil {
		return checkday.Day{}, nil, err
	}
	reports, err := s.store.ReportsBetween(ctx, day.Start, day.End, personID)
	if err != nil {
		return day, nil, err
	}
	if reports == nil {
		reports = []Report{}
	}
	return day, reports, nil
}

func newView(day checkday.Day, personID string, statuses []Status) View {
	return View{Day: day, PersonID: personID, Statuses: statuses, Summary: Summarize(statuses)}
}

func containsLocation(locs []location.Location, id string) bool {
	for _, l := range locs {
		if l.ID == id {
			return true
		}
	}
	return false
}
