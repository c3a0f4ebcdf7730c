package models

import "time"

// Grade is the single grade recorded for an enrollment.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Value        float64   `db:"value" json:"value"`
	Notes        string    `db:"notes" json:"notes"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail enriches Grade with student and course display fields.
type GradeDetail struct {
	Grade
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// GradeFilter provides filters for listing grades.
type GradeFilter struct {
	EnrollmentID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
