package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusops/course-records-api/internal/models"
	"github.com/campusops/course-records-api/internal/service"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
	"github.com/campusops/course-records-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param course_id query string false "Filter by course"
// @Param student_id query string false "Filter by student"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.CourseID = c.Query("course_id")
	filter.StudentID = c.Query("student_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	from, ok := parseDateQuery(c.Query("from"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}
	to, ok := parseDateQuery(c.Query("to"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}
	filter.DateFrom = from
	filter.DateTo = to
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Record godoc
// @Summary Record attendance for one enrollment
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Update godoc
// @Summary Update an attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body service.UpdateAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// CourseAttendance godoc
// @Summary Get course attendance sheet for a date
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance [get]
func (h *AttendanceHandler) CourseAttendance(c *gin.Context) {
	date, ok := parseDateQuery(c.Query("date"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if date != nil {
		day = *date
	}
	roster, created, err := h.attendance.EnsureRosterForDate(c.Request.Context(), c.Param("id"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil, map[string]interface{}{
		"date":    day.Format("2006-01-02"),
		"created": created,
	})
}

type batchAttendanceBody struct {
	Date    string                         `json:"date"`
	Entries []service.BatchAttendanceEntry `json:"entries"`
}

// RecordCourseAttendance godoc
// @Summary Record attendance for a course session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body batchAttendanceBody true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance [post]
func (h *AttendanceHandler) RecordCourseAttendance(c *gin.Context) {
	var body batchAttendanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if body.Date != "" {
		parsed, ok := parseDateQuery(body.Date)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		day = *parsed
	}
	result, err := h.attendance.RecordBatch(c.Request.Context(), service.BatchAttendanceRequest{
		CourseID: c.Param("id"),
		Date:     day,
		Entries:  body.Entries,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ByCourse godoc
// @Summary List course attendance over a date range
// @Tags Attendance
// @Produce json
// @Param course_id query string true "Course ID"
// @Param start query string false "Start date (YYYY-MM-DD)"
// @Param end query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/by-course [get]
func (h *AttendanceHandler) ByCourse(c *gin.Context) {
	courseID := c.Query("course_id")
	if courseID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course_id is required"))
		return
	}
	from, ok := parseDateQuery(c.Query("start"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start must be YYYY-MM-DD"))
		return
	}
	to, ok := parseDateQuery(c.Query("end"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end must be YYYY-MM-DD"))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, pagination, err := h.attendance.ByCourse(c.Request.Context(), courseID, from, to, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// ByStudent godoc
// @Summary List a student's attendance
// @Tags Attendance
// @Produce json
// @Param student_id query string true "Student ID"
// @Param course_id query string false "Limit to one course"
// @Success 200 {object} response.Envelope
// @Router /attendance/by-student [get]
func (h *AttendanceHandler) ByStudent(c *gin.Context) {
	studentID := c.Query("student_id")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, pagination, err := h.attendance.ByStudent(c.Request.Context(), studentID, c.Query("course_id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Delete godoc
// @Summary Delete attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
