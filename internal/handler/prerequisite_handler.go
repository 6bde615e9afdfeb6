package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-reg-api/internal/service"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
	"github.com/noah-isme/course-reg-api/pkg/response"
)

// PrerequisiteHandler exposes prerequisite endpoints nested under courses.
type PrerequisiteHandler struct {
	prereqs *service.PrerequisiteService
}

// NewPrerequisiteHandler constructs PrerequisiteHandler.
func NewPrerequisiteHandler(prereqs *service.PrerequisiteService) *PrerequisiteHandler {
	return &PrerequisiteHandler{prereqs: prereqs}
}

// List godoc
// @Summary List prerequisites of a course
// @Tags Prerequisites
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/prerequisites [get]
func (h *PrerequisiteHandler) List(c *gin.Context) {
	prereqs, err := h.prereqs.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", prereqs)
}

// Create godoc
// @Summary Add prerequisite to a course
// @Tags Prerequisites
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CreatePrerequisiteRequest true "Prerequisite payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/prerequisites [post]
func (h *PrerequisiteHandler) Create(c *gin.Context) {
	var req service.CreatePrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	prereq, err := h.prereqs.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "prerequisite added", prereq)
}

// Delete godoc
// @Summary Remove prerequisite from a course
// @Tags Prerequisites
// @Produce json
// @Param id path string true "Course ID"
// @Param prereqId path string true "Prerequisite ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/prerequisites/{prereqId} [delete]
func (h *PrerequisiteHandler) Delete(c *gin.Context) {
	if err := h.prereqs.Delete(c.Request.Context(), c.Param("id"), c.Param("prereqId")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "prerequisite removed", nil)
}
