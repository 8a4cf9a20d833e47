package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"satpam/internal/personnel"
	"satpam/internal/roster"
	"satpam/internal/schedule"
)

type entryRequest struct {
	Date     string `json:"date" binding:"required"`
	PersonID string `json:"person_id" binding:"required,uuid"`
	Building string `json:"building" binding:"required,selector"`
}

type createSchedulesRequest struct {
	Entries []entryRequest `json:"entries" binding:"required,min=1,dive"`
}

type assignmentRequest struct {
	PersonID string `json:"person_id" binding:"required"`
	Date     string `json:"date" binding:"required"`
}

type moveRequest struct {
	From assignmentRequest `json:"from" binding:"required"`
	To   assignmentRequest `json:"to" binding:"required"`
}

// ListSchedules lists rows for a date. Guards only ever see their own.
func (h *Handler) ListSchedules(c *gin.Context) {
	a := actor(c)
	personID := c.Query("person_id")
	if !a.Role.CanReview() {
		if personID != "" && personID != a.PersonID {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		personID = a.PersonID
	}

	date := c.Query("date")
	if date == "" {
		day, err := h.Attendance.Today()
		if err != nil {
			h.fail(c, err)
			return
		}
		date = day.Label
	}

	rows, err := h.Schedules.ListByDate(c.Request.Context(), date, personID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if rows == nil {
		rows = []schedule.Assigned{}
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "schedules": rows})
}

// CreateSchedules plans and writes manual entries.
func (h *Handler) CreateSchedules(c *gin.Context) {
	var req createSchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	entries := make([]schedule.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		sel, err := schedule.ParseSelector(e.Building)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		entries = append(entries, schedule.Entry{Date: e.Date, PersonID: e.PersonID, Selector: sel})
	}

	out, err := h.Planner.Apply(c.Request.Context(), entries)
	if err != nil {
		h.failWithOutcome(c, err, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// MoveSchedule hands a person's day over to another person and/or date.
func (h *Handler) MoveSchedule(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := h.Schedules.MoveAssignment(c.Request.Context(),
		schedule.Assignment{PersonID: req.From.PersonID, Date: req.From.Date},
		schedule.Assignment{PersonID: req.To.PersonID, Date: req.To.Date})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": n})
}

// DeleteSchedules removes a person's day, or a single location of it.
func (h *Handler) DeleteSchedules(c *gin.Context) {
	personID, date := c.Query("person_id"), c.Query("date")
	if personID == "" || date == "" {
		badRequest(c, "person_id and date are required")
		return
	}

	var (
		n   int64
		err error
	)
	if loc := c.Query("location_id"); loc != "" {
		n, err = h.Schedules.DeleteRow(c.Request.Context(), schedule.Row{Date: date, PersonID: personID, LocationID: loc})
	} else {
		n, err = h.Schedules.DeleteAssignment(c.Request.Context(), personID, date)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// ImportRoster accepts a multipart "file" plus a "building" selector.
func (h *Handler) ImportRoster(c *gin.Context) {
	sel, err := schedule.ParseSelector(c.PostForm("building"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file field required")
		return
	}
	if fh.Size > h.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("roster exceeds %d bytes", h.MaxUploadBytes)})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.Importer.Import(c.Request.Context(), fh.Filename, data, sel)
	if err != nil {
		h.failWithOutcome(c, err, res.Outcome)
		return
	}
	if res.Warnings == nil {
		res.Warnings = []personnel.Collision{}
	}
	c.JSON(http.StatusOK, res)
}

// RosterTemplate downloads an empty roster workbook.
func (h *Handler) RosterTemplate(c *gin.Context) {
	data, err := roster.Template()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="roster_template.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
