package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"satpam/internal/attendance"
	"satpam/internal/auth"
	"satpam/internal/checkday"
	"satpam/internal/evidence"
	"satpam/internal/location"
	"satpam/internal/personnel"
	"satpam/internal/roster"
	"satpam/internal/schedule"
	"satpam/internal/store"
)

// People is the personnel directory.
type People interface {
	List(ctx context.Context) ([]personnel.Person, error)
	Get(ctx context.Context, id string) (personnel.Person, error)
	Create(ctx context.Context, p personnel.Person) (personnel.Person, error)
	Update(ctx context.Context, p personnel.Person) error
	Delete(ctx context.Context, id string) error
}

// Locations is the patrol point registry.
type Locations interface {
	List(ctx context.Context) ([]location.Location, error)
	Get(ctx context.Context, id string) (location.Location, error)
	Create(ctx context.Context, name string, building location.Building) (location.Location, error)
	Update(ctx context.Context, id, name string, building location.Building) error
	Delete(ctx context.Context, id string) error
}

// Schedules reads and edits stored schedule rows.
type Schedules interface {
	ListByDate(ctx context.Context, date, personID string) ([]schedule.Assigned, error)
	DeleteAssignment(ctx context.Context, personID, date string) (int64, error)
	DeleteRow(ctx context.Context, row schedule.Row) (int64, error)
	MoveAssignment(ctx context.Context, from, to schedule.Assignment) (int64, error)
}

// Planner plans and writes roster entries.
type Planner interface {
	Apply(ctx context.Context, entries []schedule.Entry) (schedule.Outcome, error)
}

// Importer turns an uploaded roster file into schedules.
type Importer interface {
	Import(ctx context.Context, filename string, data []byte, sel schedule.Selector) (roster.Result, error)
}

// Attendance serves report submission and the attendance views.
type Attendance interface {
	Submit(ctx context.Context, actor attendance.Actor, qrPayload, evidenceURL string) (attendance.Report, error)
	Dashboard(ctx context.Context, personID, label string) (attendance.View, error)
	Audit(ctx context.Context, label string) (attendance.View, error)
	Overview(ctx context.Context, label string) ([]attendance.View, error)
	Reports(ctx context.Context, label, personID string) (checkday.Day, []attendance.Report, error)
	Today() (checkday.Day, error)
}

// Evidence stores uploaded photos.
type Evidence interface {
	Store(ctx context.Context, data []byte) (string, error)
}

// Deps groups everything the HTTP layer calls into.
type Deps struct {
	People     People
	Locations  Locations
	Schedules  Schedules
	Planner    Planner
	Importer   Importer
	Attendance Attendance
	Evidence   Evidence
	// Health reports per-dependency reachability for /healthz.
	Health         func(ctx context.Context) map[string]bool
	MaxUploadBytes int64
}

// Handler holds the HTTP endpoints.
type Handler struct {
	Deps
	log *zap.Logger
}

// New builds the handler set.
func New(deps Deps, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 8 << 20
	}
	return &Handler{Deps: deps, log: log}
}

// Register mounts every route. authn is the bearer-token middleware.
func (h *Handler) Register(r gin.IRouter, authn gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1", authn)
	review := auth.RequireRole(string(personnel.RoleAdmin), string(personnel.RoleSupervisor))
	admin := auth.RequireRole(string(personnel.RoleAdmin))
	guard := auth.RequireRole(string(personnel.RoleGuard))

	v1.GET("/me", h.Me)

	v1.GET("/persons", review, h.ListPersons)
	v1.POST("/persons", admin, h.CreatePerson)
	v1.PUT("/persons/:id", admin, h.UpdatePerson)
	v1.DELETE("/persons/:id", admin, h.DeletePerson)

	v1.GET("/locations", h.ListLocations)
	v1.POST("/locations", admin, h.CreateLocation)
	v1.PUT("/locations/:id", admin, h.UpdateLocation)
	v1.DELETE("/locations/:id", admin, h.DeleteLocation)

	v1.GET("/schedules", h.ListSchedules)
	v1.POST("/schedules", admin, h.CreateSchedules)
	v1.PUT("/schedules", admin, h.MoveSchedule)
	v1.DELETE("/schedules", admin, h.DeleteSchedules)
	v1.POST("/schedules/import", admin, h.ImportRoster)
	v1.GET("/schedules/import/template", admin, h.RosterTemplate)

	v1.POST("/evidence", h.UploadEvidence)
	v1.POST("/reports", guard, h.SubmitReport)
	v1.GET("/reports", review, h.ListReports)

	v1.GET("/dashboard", h.Dashboard)
	v1.GET("/dashboard/audit", review, h.Audit)
	v1.GET("/dashboard/overview", review, h.Overview)
}

// Healthz reports dependency reachability.
func (h *Handler) Healthz(c *gin.Context) {
	checks := map[string]bool{}
	if h.Health != nil {
		checks = h.Health(c.Request.Context())
	}
	status := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}

func actor(c *gin.Context) attendance.Actor {
	claims, _ := auth.Current(c)
	return attendance.Actor{PersonID: claims.Subject, Role: personnel.Role(claims.Role)}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	status, body := h.errorBody(c, err)
	c.JSON(status, body)
}

// failWithOutcome reports err together with whatever was written before it.
func (h *Handler) failWithOutcome(c *gin.Context, err error, out schedule.Outcome) {
	status, body := h.errorBody(c, err)
	if len(out.Inserted) > 0 || len(out.Skipped) > 0 {
		body["inserted"] = out.Inserted
		body["skipped"] = out.Skipped
	}
	c.JSON(status, body)
}

func (h *Handler) errorBody(c *gin.Context, err error) (int, gin.H) {
	var verr *roster.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, gin.H{"error": verr.Error(), "problems": verr.Problems}
	case errors.Is(err, schedule.ErrInvalidEntry),
		errors.Is(err, roster.ErrUnsupportedFormat),
		errors.Is(err, checkday.ErrInvalidDate),
		errors.Is(err, attendance.ErrEvidenceRequired),
		errors.Is(err, evidence.ErrEmpty),
		errors.Is(err, evidence.ErrNotImage),
		store.IsInvalidText(err):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, evidence.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()}
	case store.IsForeignKeyViolation(err):
		return http.StatusBadRequest, gin.H{"error": "referenced person does not exist"}
	case errors.Is(err, personnel.ErrNotFound),
		errors.Is(err, location.ErrNotFound),
		errors.Is(err, schedule.ErrNotFound),
		errors.Is(err, attendance.ErrReportNotFound),
		errors.Is(err, attendance.ErrUnknownQR):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, attendance.ErrNotAssigned):
		return http.StatusForbidden, gin.H{"error": err.Error()}
	case errors.Is(err, schedule.ErrDuplicateAssignment), store.IsUniqueViolation(err):
		return http.StatusConflict, gin.H{"error": "already exists"}
	case errors.Is(err, evidence.ErrUpload):
		h.log.Error("evidence backend failed", zap.Error(err))
		return http.StatusBadGateway, gin.H{"error": "image upload failed"}
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		return http.StatusInternalServerError, gin.H{"error": "internal error"}
	}
}
