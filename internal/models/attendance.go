package models

import "time"

// Attendance records presence for one enrollment on one calendar date.
type Attendance struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Date         time.Time `db:"date" json:"date"`
	Present      bool      `db:"present" json:"present"`
	Excused      bool      `db:"excused" json:"excused"`
	Notes        string    `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail enriches Attendance with student and course display fields.
type AttendanceDetail struct {
	Attendance
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// AttendanceFilter provides filters for listing attendance rows.
type AttendanceFilter struct {
	CourseID  string
	StudentID string
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RosterEntry is one student's attendance state for a course on a date.
type RosterEntry struct {
	StudentID        string `db:"student_id" json:"student_id"`
	EnrollmentNumber string `db:"enrollment_number" json:"enrollment_number"`
	StudentName      string `db:"student_name" json:"student_name"`
	Present          bool   `db:"present" json:"present"`
}
