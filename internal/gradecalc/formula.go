package gradecalc

import (
	"errors"
	"fmt"
)

// Subjects used by the default formula.
const (
	SubjectMath   = "Mathematik"
	SubjectGerman = "Deutsch"
)

// Node keys of the default formula.
const (
	KeyOverall            = "gesamtnote"
	KeyVornote            = "vornote"
	KeyVornoteMath        = "vornote.math"
	KeyVornoteGerman      = "vornote.deutsch"
	KeyExam               = "exam"
	KeyExamMath           = "exam.math"
	KeyExamGerman         = "exam.deutsch"
	KeyExamGermanEssay    = "exam.deutsch.aufsatz"
	KeyExamGermanLanguage = "exam.deutsch.sprachbetrachtung"
)

// Node is one step of a composite formula.
//
// A leaf (no Children) is the unweighted mean of all records whose subject
// equals Subject and whose label belongs to Category; it is absent when no
// record matches. An inner node is the mean of its present children and is
// absent when none of them is present.
type Node struct {
	Key      string
	Subject  string
	Category Category
	Children []Node
}

// Leaf builds a filter node.
func Leaf(key, subject string, c Category) Node {
	return Node{Key: key, Subject: subject, Category: c}
}

// Combine builds a fallback-mean node over children.
func Combine(key string, children ...Node) Node {
	return Node{Key: key, Children: children}
}

func (n Node) IsLeaf() bool { return len(n.Children) == 0 }

// Validate checks that keys are unique and non-empty and that every leaf
// names a subject and a known category.
func (n Node) Validate() error {
	return n.validate(map[string]bool{})
}

func (n Node) validate(seen map[string]bool) error {
	if n.Key == "" {
		return errors.New("formula: node key is required")
	}
	if seen[n.Key] {
		return fmt.Errorf("formula: duplicate key %q", n.Key)
	}
	seen[n.Key] = true
	if n.IsLeaf() {
		if n.Subject == "" {
			return fmt.Errorf("formula: leaf %q has no subject", n.Key)
		}
		if _, ok := labelTable[n.Category]; !ok {
			return fmt.Errorf("formula: leaf %q has unknown category", n.Key)
		}
		return nil
	}
	for _, c := range n.Children {
		if err := c.validate(seen); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns every node key in depth-first order.
func (n Node) Keys() []string {
	out := []string{n.Key}
	for _, c := range n.Children {
		out = append(out, c.Keys()...)
	}
	return out
}

// DefaultFormula is the Gymiprüfung composite: the overall grade is the
// fallback mean of the pre-exam grade and the exam grade, each of which is
// the fallback mean of a math and a German part.
func DefaultFormula() Node {
	return Combine(KeyOverall,
		Combine(KeyVornote,
			Leaf(KeyVornoteMath, SubjectMath, PreExam),
			Leaf(KeyVornoteGerman, SubjectGerman, PreExam),
		),
		Combine(KeyExam,
			Leaf(KeyExamMath, SubjectMath, Exam),
			Combine(KeyExamGerman,
				Leaf(KeyExamGermanEssay, SubjectGerman, Essay),
				Leaf(KeyExamGermanLanguage, SubjectGerman, LanguageAnalysis),
			),
		),
	)
}
