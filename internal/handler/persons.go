package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"satpam/internal/personnel"
)

type personRequest struct {
	ID        string  `json:"id" binding:"omitempty,uuid"`
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name"`
	IDNumber  *string `json:"id_number"`
	Role      string  `json:"role" binding:"required,role"`
}

func (r personRequest) person() personnel.Person {
	return personnel.Person{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		IDNumber:  r.IDNumber,
		Role:      personnel.Role(r.Role),
	}
}

// Me returns the caller's own directory entry.
func (h *Handler) Me(c *gin.Context) {
	p, err := h.People.Get(c.Request.Context(), actor(c).PersonID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPersons(c *gin.Context) {
	people, err := h.People.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if people == nil {
		people = []personnel.Person{}
	}
	c.JSON(http.StatusOK, people)
}

// CreatePerson provisions a person. A supplied id links the identity-provider account.
func (h *Handler) CreatePerson(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.People.Create(c.Request.Context(), req.person())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePerson(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p := req.person()
	p.ID = c.Param("id")
	if err := h.People.Update(c.Request.Context(), p); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePerson removes a person together with their schedules and reports.
func (h *Handler) DeletePerson(c *gin.Context) {
	if err := h.People.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
