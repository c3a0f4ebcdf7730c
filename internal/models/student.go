package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID               string    `db:"id" json:"id"`
	EnrollmentNumber string    `db:"enrollment_number" json:"enrollment_number"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	Email            string    `db:"email" json:"email"`
	Phone            string    `db:"phone" json:"phone"`
	BirthDate        time.Time `db:"birth_date" json:"birth_date"`
	AdmittedAt       time.Time `db:"admitted_at" json:"admitted_at"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail is the single-item projection: adds the courses the student
// is actively enrolled in.
type StudentDetail struct {
	Student
	Courses []CourseSummary `json:"courses"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	CourseID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
