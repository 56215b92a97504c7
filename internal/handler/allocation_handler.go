package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dts-adp-api/internal/service"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
	"github.com/noah-isme/dts-adp-api/pkg/response"
)

// AllocationHandler exposes seat allocation endpoints for course instances.
type AllocationHandler struct {
	allocations *service.AllocationService
}

// NewAllocationHandler constructs AllocationHandler.
func NewAllocationHandler(allocations *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

// State godoc
// @Summary Get seat allocations with totals
// @Tags Allocations
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/allocations [get]
func (h *AllocationHandler) State(c *gin.Context) {
	state, err := h.allocations.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Add godoc
// @Summary Add one seat allocation
// @Tags Allocations
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.AddAllocationRequest true "Allocation payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/allocations [post]
func (h *AllocationHandler) Add(c *gin.Context) {
	var req service.AddAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.allocations.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Replace godoc
// @Summary Replace the whole allocation list
// @Tags Allocations
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.ReplaceAllocationsRequest true "Allocation list"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/allocations [put]
func (h *AllocationHandler) Replace(c *gin.Context) {
	var req service.ReplaceAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.allocations.Replace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Remove godoc
// @Summary Remove an allocation by list position
// @Tags Allocations
// @Produce json
// @Param id path string true "Course ID"
// @Param index path int true "Allocation index"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/allocations/{index} [delete]
func (h *AllocationHandler) Remove(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid allocation index"))
		return
	}
	state, err := h.allocations.Remove(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}
