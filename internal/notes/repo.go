package notes

import (
	"context"
	"errors"

	"github.com/notenpfad/notenpfad/internal/gradecalc"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type ListOpts struct {
	OwnerID string // empty lists every owner
	Limit   int
	Offset  int
}

// Records are a student's grades in the shape the grade engine consumes,
// plus the weighting of every subject they reference.
type Records struct {
	Grades  []gradecalc.Record
	Weights map[string]float64
}

type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	SetPassword(ctx context.Context, userID, hash string) error
	ListChildren(ctx context.Context, parentID string) ([]Child, error)
	// DeleteUser removes the account with its student profile and grades.
	DeleteUser(ctx context.Context, id string) error

	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, id string) (Student, error)
	GetStudentByUser(ctx context.Context, userID string) (Student, error)

	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	ListSubjects(ctx context.Context, opts ListOpts) ([]Subject, error)
	// DeleteSubject removes the subject together with its grades and topics.
	DeleteSubject(ctx context.Context, id string) error
	// SubjectStudents lists the students holding grades in the subject.
	SubjectStudents(ctx context.Context, subjectID string) ([]string, error)

	CreateGrade(ctx context.Context, g Grade) (Grade, error)
	GetGrade(ctx context.Context, id string) (Grade, error)
	ListGrades(ctx context.Context, studentID string) ([]Grade, error)
	DeleteGrade(ctx context.Context, id string) error

	CreateTopic(ctx context.Context, t Topic) (Topic, error)
	GetTopic(ctx context.Context, id string) (Topic, error)
	ListTopics(ctx context.Context, subjectID string) ([]Topic, error)
	ToggleTopic(ctx context.Context, id string) (Topic, error)

	StudentRecords(ctx context.Context, studentID string) (Records, error)
	// ResetStudent deletes the student's grades and clears the completion
	// flag of every topic under subjects owned by ownerID.
	ResetStudent(ctx context.Context, studentID, ownerID string) error
}
