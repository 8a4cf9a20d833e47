package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"satpam/internal/location"
)

type locationRequest struct {
	Name     string `json:"name" binding:"required"`
	Building string `json:"building" binding:"building"`
}

func (h *Handler) ListLocations(c *gin.Context) {
	locs, err := h.Locations.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if locs == nil {
		locs = []location.Location{}
	}
	c.JSON(http.StatusOK, locs)
}

// CreateLocation registers a patrol point and binds a fresh QR payload to it.
func (h *Handler) CreateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, _ := location.ParseBuilding(req.Building)
	loc, err := h.Locations.Create(c.Request.Context(), req.Name, b)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

// UpdateLocation renames or re-tags a location; its QR payload never changes.
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, _ := location.ParseBuilding(req.Building)
	ctx := c.Request.Context()
	if err := h.Locations.Update(ctx, c.Param("id"), req.Name, b); err != nil {
		h.fail(c, err)
		return
	}
	loc, err := h.Locations.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// DeleteLocation removes a location. Schedules pointing at it remain and
// read back as unknown.
func (h *Handler) DeleteLocation(c *gin.Context) {
	if err := h.Locations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
