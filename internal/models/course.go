package models

import "time"

// DayOfWeek identifies the weekly meeting day of a course.
type DayOfWeek string

// Meeting days.
const (
	DayMonday    DayOfWeek = "MON"
	DayTuesday   DayOfWeek = "TUE"
	DayWednesday DayOfWeek = "WED"
	DayThursday  DayOfWeek = "THU"
	DayFriday    DayOfWeek = "FRI"
	DaySaturday  DayOfWeek = "SAT"
	DaySunday    DayOfWeek = "SUN"
)

// Valid reports whether the value is one of the seven meeting days.
func (d DayOfWeek) Valid() bool {
	switch d {
	case DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday:
		return true
	}
	return false
}

// Course represents a scheduled course offering.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Credits     int       `db:"credits" json:"credits"`
	ProfessorID *string   `db:"professor_id" json:"professor_id,omitempty"`
	MaxSeats    int       `db:"max_seats" json:"max_seats"`
	Day         DayOfWeek `db:"day" json:"day"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseRow is the list projection: a course plus its professor's display name.
type CourseRow struct {
	Course
	ProfessorName *string `db:"professor_name" json:"professor_name,omitempty"`
}

// CourseDetail is the single-item projection: adds the ACTIVE enrollment count.
type CourseDetail struct {
	CourseRow
	EnrolledCount int `db:"enrolled_count" json:"enrolled_count"`
}

// CourseSummary is the compact shape embedded in student detail responses.
type CourseSummary struct {
	ID            string  `db:"id" json:"id"`
	Code          string  `db:"code" json:"code"`
	Name          string  `db:"name" json:"name"`
	ProfessorName *string `db:"professor_name" json:"professor_name,omitempty"`
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Search      string
	ProfessorID string
	Active      *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
