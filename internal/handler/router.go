package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers bundles every endpoint group for route registration.
type Handlers struct {
	Professors  *ProfessorHandler
	Students    *StudentHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Grades      *GradeHandler
	Attendance  *AttendanceHandler
	Exports     *ExportHandler
}

// RegisterRoutes mounts every endpoint group under the API prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	api := r.Group(prefix)

	professors := api.Group("/professors")
	professors.GET("", h.Professors.List)
	professors.POST("", h.Professors.Create)
	professors.GET("/:id", h.Professors.Get)
	professors.PUT("/:id", h.Professors.Update)
	professors.DELETE("/:id", h.Professors.Delete)
	professors.GET("/:id/courses", h.Courses.ByProfessor)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.GET("/:id/courses", h.Students.Courses)
	students.GET("/:id/schedule", h.Students.Schedule)
	students.GET("/:id/transcript", h.Students.Transcript)
	students.GET("/:id/grades", h.Students.Transcript)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)
	courses.GET("/:id/roster", h.Courses.Roster)
	courses.GET("/:id/students", h.Students.ByCourse)
	courses.GET("/:id/attendance", h.Attendance.CourseAttendance)
	courses.POST("/:id/attendance", h.Attendance.RecordCourseAttendance)

	enrollments := api.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.POST("", h.Enrollments.Enroll)
	enrollments.POST("/enroll", h.Enrollments.Enroll)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.PUT("/:id", h.Enrollments.Update)
	enrollments.POST("/:id/withdraw", h.Enrollments.Withdraw)
	enrollments.DELETE("/:id", h.Enrollments.Delete)

	grades := api.Group("/grades")
	grades.GET("", h.Grades.List)
	grades.POST("", h.Grades.Record)
	grades.POST("/record", h.Grades.Record)
	grades.GET("/:id", h.Grades.Get)
	grades.PUT("/:id", h.Grades.Update)
	grades.DELETE("/:id", h.Grades.Delete)

	attendance := api.Group("/attendance")
	attendance.GET("", h.Attendance.List)
	attendance.POST("", h.Attendance.Record)
	attendance.GET("/by-course", h.Attendance.ByCourse)
	attendance.GET("/by-student", h.Attendance.ByStudent)
	attendance.GET("/:id", h.Attendance.Get)
	attendance.PUT("/:id", h.Attendance.Update)
	attendance.DELETE("/:id", h.Attendance.Delete)

	exports := api.Group("/export")
	exports.GET("/students/:id/transcript", h.Exports.Transcript)
	exports.GET("/courses/:id/roster", h.Exports.Roster)
}
