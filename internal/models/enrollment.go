package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment captures a student's registration to a course.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Status     EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentDetail enriches Enrollment with student, course and grade info.
type EnrollmentDetail struct {
	Enrollment
	StudentName   string   `db:"student_name" json:"student_name"`
	StudentNumber string   `db:"student_number" json:"student_number"`
	CourseCode    string   `db:"course_code" json:"course_code"`
	CourseName    string   `db:"course_name" json:"course_name"`
	GradeValue    *float64 `db:"grade_value" json:"grade_value,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ScheduleEntry is one row of a student's weekly schedule.
type ScheduleEntry struct {
	Day           DayOfWeek `db:"day" json:"day"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	CourseCode    string    `db:"course_code" json:"course_code"`
	CourseName    string    `db:"course_name" json:"course_name"`
	ProfessorName *string   `db:"professor_name" json:"professor_name,omitempty"`
}

// TranscriptEntry is one row of a student's transcript, graded or not.
type TranscriptEntry struct {
	CourseID   string           `db:"course_id" json:"course_id"`
	CourseCode string           `db:"course_code" json:"course_code"`
	CourseName string           `db:"course_name" json:"course_name"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	GradeValue *float64         `db:"grade_value" json:"grade_value,omitempty"`
}
