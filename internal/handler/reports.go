package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"satpam/internal/evidence"
)

type submitRequest struct {
	QRPayload   string `json:"qr_payload" binding:"required"`
	EvidenceURL string `json:"evidence_url" binding:"required,url"`
}

// UploadEvidence stores a photo given as multipart "file" or as
// {"data": "<base64 data URL>"} and returns its public URL.
func (h *Handler) UploadEvidence(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes*2)

	var data []byte
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			badRequest(c, "file field required")
			return
		}
		defer file.Close()
		if data, err = io.ReadAll(io.LimitReader(file, h.MaxUploadBytes+1)); err != nil {
			h.fail(c, err)
			return
		}
	} else {
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, `provide {"data": "<base64 data URL>"} or a multipart file`)
			return
		}
		var err error
		if data, err = evidence.DecodeDataURL(body.Data); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	url, err := h.Evidence.Store(c.Request.Context(), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// SubmitReport records a QR scan with its evidence photo URL.
func (h *Handler) SubmitReport(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rep, err := h.Attendance.Submit(c.Request.Context(), actor(c), req.QRPayload, req.EvidenceURL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (h *Handler) ListReports(c *gin.Context) {
	day, reports, err := h.Attendance.Reports(c.Request.Context(), c.Query("date"), c.Query("person_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "reports": reports})
}

// Dashboard is the per-guard view. Reviewers may pass person_id; guards get
// their own.
func (h *Handler) Dashboard(c *gin.Context) {
	a := actor(c)
	personID := a.PersonID
	if q := c.Query("person_id"); q != "" && q != a.PersonID {
		if !a.Role.CanReview() {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		personID = q
	}
	view, err := h.Attendance.Dashboard(c.Request.Context(), personID, c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Audit(c *gin.Context) {
	view, err := h.Attendance.Audit(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Overview(c *gin.Context) {
	views, err := h.Attendance.Overview(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guards": views})
}
