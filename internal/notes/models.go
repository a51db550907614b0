package notes

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	ParentID     string `json:"parent_id,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

// OwnerID is the user whose subjects apply to u. Students inherit the
// subjects of their parent; everyone else owns their own.
func (u User) OwnerID() string {
	if u.Role == RoleStudent && u.ParentID != "" {
		return u.ParentID
	}
	return u.ID
}

type Student struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	TargetSchool string `json:"target_school"`
}

// Child is a student account as seen by its parent.
type Child struct {
	User
	StudentProfile *Student `json:"student_profile"`
}

type Subject struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id,omitempty"`
	Name      string  `json:"name"`
	Weighting float64 `json:"weighting"`
}

type Grade struct {
	ID        string  `json:"id"`
	StudentID string  `json:"student_id"`
	SubjectID string  `json:"subject_id"`
	Value     float64 `json:"value"`
	Type      string  `json:"type"`
	Date      string  `json:"date"`
	CreatedAt int64   `json:"-"`
}

type Topic struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	Completed bool   `json:"is_completed"`
}

// DateLayout is the calendar date format grades are stored with.
const DateLayout = "2006-01-02"

// Today formats t as a grade date.
func Today(t time.Time) string { return t.Format(DateLayout) }
