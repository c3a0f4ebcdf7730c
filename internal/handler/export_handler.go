package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusops/course-records-api/internal/service"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
	"github.com/campusops/course-records-api/pkg/response"
)

// ExportHandler exposes transcript and roster downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Transcript godoc
// @Summary Download a student transcript
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf, defaults to csv"
// @Success 200 {file} file
// @Router /export/students/{id}/transcript [get]
func (h *ExportHandler) Transcript(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.Transcript(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Payload)
}

// Roster godoc
// @Summary Download a course roster for a date
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param format query string false "csv or pdf, defaults to csv"
// @Success 200 {file} file
// @Router /export/courses/{id}/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	date, ok := parseDateQuery(c.Query("date"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if date != nil {
		day = *date
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.Roster(c.Request.Context(), c.Param("id"), day, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Payload)
}
