// Package report renders the plain-text student summary used by /summary and
// the notenctl CLI.
package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notenpfad/notenpfad/internal/gradecalc"
	"github.com/notenpfad/notenpfad/internal/notes"
)

// TopicLine is a topic together with the name of its subject.
type TopicLine struct {
	notes.Topic
	SubjectName string
}

// SubjectLine groups a student's grade values under one subject.
type SubjectLine struct {
	notes.Subject
	Values []float64
}

// Mean is the plain average of the grade values, or false without grades.
func (s SubjectLine) Mean() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range s.Values {
		sum += v
	}
	return sum / float64(len(s.Values)), true
}

type Student struct {
	Profile   notes.Student
	Subjects  []SubjectLine
	Topics    []TopicLine
	Grades    []notes.Grade
	Composite gradecalc.Composite
}

// Load gathers everything a summary shows for one student. ownerID selects
// the subject set, see notes.User.OwnerID.
func Load(ctx context.Context, store notes.Store, engine *gradecalc.Engine, studentID, ownerID string) (Student, error) {
	st, err := store.GetStudent(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	subjects, err := store.ListSubjects(ctx, notes.ListOpts{OwnerID: ownerID})
	if err != nil {
		return Student{}, err
	}
	grades, err := store.ListGrades(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	recs, err := store.StudentRecords(ctx, studentID)
	if err != nil {
		return Student{}, err
	}

	out := Student{Profile: st, Grades: grades, Composite: engine.Composite(recs.Grades)}
	for _, sub := range subjects {
		line := SubjectLine{Subject: sub}
		for _, g := range grades {
			if g.SubjectID == sub.ID {
				line.Values = append(line.Values, g.Value)
			}
		}
		out.Subjects = append(out.Subjects, line)

		topics, err := store.ListTopics(ctx, sub.ID)
		if err != nil {
			return Student{}, err
		}
		for _, t := range topics {
			out.Topics = append(out.Topics, TopicLine{Topic: t, SubjectName: sub.Name})
		}
	}
	return out, nil
}

// LoadChildren loads every child of parentID that has a student profile.
func LoadChildren(ctx context.Context, store notes.Store, engine *gradecalc.Engine, parentID string) ([]Student, error) {
	kids, err := store.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]Student, 0, len(kids))
	for _, k := range kids {
		if k.StudentProfile == nil {
			continue
		}
		s, err := Load(ctx, store, engine, k.StudentProfile.ID, parentID)
		if errors.Is(err, notes.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Text renders the summary of one student.
func Text(s Student) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student Name: %s\n", s.Profile.Name)
	fmt.Fprintf(&b, "Target School: %s\n\n", s.Profile.TargetSchool)

	b.WriteString("Academic Performance:\n")
	for _, line := range s.Subjects {
		avg := "No grades yet"
		if m, ok := line.Mean(); ok {
			avg = fmt.Sprintf("%.2f", m)
		}
		fmt.Fprintf(&b, "- %s: Average %s (Grades: %s)\n", line.Name, avg, floatList(line.Values))
	}

	b.WriteString("\nLearning Topics Status:\n")
	for _, t := range s.Topics {
		status := "[ ]"
		if t.Completed {
			status = "[x]"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", status, t.Name, t.SubjectName)
	}

	verdict := "not passed"
	if s.Composite.Passed {
		verdict = "passed"
	}
	fmt.Fprintf(&b, "\nOverall: %.2f (%s)\n", s.Composite.Average, verdict)
	return b.String()
}

// ParentText concatenates the summaries of all children under headers.
func ParentText(children []Student) string {
	if len(children) == 0 {
		return "No children linked to this parent account."
	}
	parts := make([]string, 0, len(children))
	for _, c := range children {
		parts = append(parts, fmt.Sprintf("--- Child: %s (ID: %s) ---\n%s", c.Profile.Name, c.Profile.ID, Text(c)))
	}
	return "Here is the data for your children:\n\n" + strings.Join(parts, "\n\n")
}

// floatList formats values as [5.0, 4.25].
func floatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		parts[i] = s
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
