package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dts-adp-api/internal/service"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
	"github.com/noah-isme/dts-adp-api/pkg/response"
)

// ClosureHandler exposes the course close endpoint.
type ClosureHandler struct {
	closures *service.ClosureService
}

// NewClosureHandler creates a ClosureHandler.
func NewClosureHandler(closures *service.ClosureService) *ClosureHandler {
	return &ClosureHandler{closures: closures}
}

// Close godoc
// @Summary Close a course
// @Description Record track layout and raw per-student performance for a finished course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CloseCourseRequest true "Closure payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/close [post]
func (h *ClosureHandler) Close(c *gin.Context) {
	var req service.CloseCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid closure payload"))
		return
	}

	closure, err := h.closures.Close(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, closure)
}
