package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusops/course-records-api/internal/models"
	"github.com/campusops/course-records-api/internal/service"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
	"github.com/campusops/course-records-api/pkg/response"
)

// ProfessorHandler exposes professor endpoints.
type ProfessorHandler struct {
	professors *service.ProfessorService
}

// NewProfessorHandler constructs ProfessorHandler.
func NewProfessorHandler(professors *service.ProfessorService) *ProfessorHandler {
	return &ProfessorHandler{professors: professors}
}

// List godoc
// @Summary List professors
// @Tags Professors
// @Produce json
// @Param search query string false "Search by name, email or specialty"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professors [get]
func (h *ProfessorHandler) List(c *gin.Context) {
	var filter models.ProfessorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Active = parseBoolQuery(c.Query("active"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	professors, pagination, err := h.professors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professors, pagination)
}

// Get godoc
// @Summary Get professor
// @Tags Professors
// @Produce json
// @Param id path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /professors/{id} [get]
func (h *ProfessorHandler) Get(c *gin.Context) {
	professor, err := h.professors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// Create godoc
// @Summary Create professor
// @Tags Professors
// @Accept json
// @Produce json
// @Param payload body service.CreateProfessorRequest true "Professor payload"
// @Success 201 {object} response.Envelope
// @Router /professors [post]
func (h *ProfessorHandler) Create(c *gin.Context) {
	var req service.CreateProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	professor, err := h.professors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, professor)
}

// Update godoc
// @Summary Update professor
// @Tags Professors
// @Accept json
// @Produce json
// @Param id path string true "Professor ID"
// @Param payload body service.UpdateProfessorRequest true "Professor payload"
// @Success 200 {object} response.Envelope
// @Router /professors/{id} [put]
func (h *ProfessorHandler) Update(c *gin.Context) {
	var req service.UpdateProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	professor, err := h.professors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// Delete godoc
// @Summary Deactivate professor
// @Tags Professors
// @Produce json
// @Param id path string true "Professor ID"
// @Success 204
// @Router /professors/{id} [delete]
func (h *ProfessorHandler) Delete(c *gin.Context) {
	if err := h.professors.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
