// Package gradecalc turns a student's tagged grade records into the
// Gymiprüfung composite (Vornote, Prüfungsnote, Gesamtnote) and projects the
// grade needed on a future assessment to reach a target average.
//
// Everything here is a pure function of its inputs: no I/O, no shared
// mutable state, safe for concurrent use.
package gradecalc

import (
	"sort"
)

const (
	// PassMark is the minimum overall composite that counts as passed.
	PassMark = 4.75
	// Precision is the number of decimal places of reported values.
	Precision = 2
)

// Record is the engine's read-only view of a stored grade.
type Record struct {
	Value   float64
	Subject string
	Label   string
}

// Breakdown holds the unrounded score of every node of an evaluated formula.
type Breakdown map[string]Score

// Get returns the score of key, absent if the key is unknown.
func (b Breakdown) Get(key string) Score { return b[key] }

// Option configures an Engine.
type Option func(*config)

type config struct {
	PassMark  float64
	Precision int
	Formula   Node
}

func WithPassMark(v float64) Option { return func(c *config) { c.PassMark = v } }
func WithPrecision(n int) Option    { return func(c *config) { c.Precision = n } }
func WithFormula(n Node) Option     { return func(c *config) { c.Formula = n } }

// Engine evaluates composites and projections.
type Engine struct {
	passMark  float64
	precision int
	formula   Node
}

// NewEngine returns an engine with the default formula and thresholds.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{
		PassMark:  PassMark,
		Precision: Precision,
		Formula:   DefaultFormula(),
	}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{
		passMark:  cfg.PassMark,
		precision: cfg.Precision,
		formula:   cfg.Formula,
	}
}

// Formula returns the formula Composite evaluates.
func (e *Engine) Formula() Node { return e.formula }

// Round reports v with the engine's precision.
func (e *Engine) Round(v float64) float64 { return roundTo(v, e.precision) }

type bucketKey struct {
	subject  string
	category Category
}

// Evaluate computes every node of formula over records. Values are left
// unrounded; callers round each reported leaf once.
func (e *Engine) Evaluate(formula Node, records []Record) Breakdown {
	buckets := map[bucketKey][]float64{}
	for _, r := range records {
		c := CategoryOf(r.Label)
		if c == CategoryUnknown {
			continue
		}
		k := bucketKey{subject: r.Subject, category: c}
		buckets[k] = append(buckets[k], r.Value)
	}
	out := Breakdown{}
	evalNode(formula, buckets, out)
	return out
}

func evalNode(n Node, buckets map[bucketKey][]float64, out Breakdown) Score {
	var s Score
	if n.IsLeaf() {
		s = mean(buckets[bucketKey{subject: n.Subject, category: n.Category}])
	} else {
		present := make([]float64, 0, len(n.Children))
		for _, c := range n.Children {
			if cs := evalNode(c, buckets, out); cs.Present {
				present = append(present, cs.Value)
			}
		}
		s = mean(present)
	}
	out[n.Key] = s
	return s
}

// mean sums in sorted order so any permutation of the input yields the
// same bits.
func mean(values []float64) Score {
	if len(values) == 0 {
		return None
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return Some(sum / float64(len(sorted)))
}

// Composite is the reported result of the default formula.
type Composite struct {
	Average float64 `json:"average"`
	Details Details `json:"details"`
	Passed  bool    `json:"passed"`
}

type Details struct {
	Vornote VornoteDetail `json:"vornote"`
	Exam    ExamDetail    `json:"exam"`
}

type VornoteDetail struct {
	Value   Score `json:"value"`
	Math    Score `json:"math"`
	Deutsch Score `json:"deutsch"`
}

type ExamDetail struct {
	Value   Score        `json:"value"`
	Math    Score        `json:"math"`
	Deutsch GermanDetail `json:"deutsch"`
}

type GermanDetail struct {
	Value             Score `json:"value"`
	Aufsatz           Score `json:"aufsatz"`
	Sprachbetrachtung Score `json:"sprachbetrachtung"`
}

// Composite evaluates the engine formula over records.
//
// Average is the formula root. Details are read from the DefaultFormula
// keys, so with any other formula they come back absent; use Evaluate to
// inspect such formulas.
// An absent overall composite is reported as 0.0; every other absent node
// stays absent. Passed compares the unrounded overall against the pass mark.
func (e *Engine) Composite(records []Record) Composite {
	b := e.Evaluate(e.formula, records)
	overall := b.Get(e.formula.Key).Or(0)
	r := func(key string) Score { return roundScore(b.Get(key), e.precision) }
	return Composite{
		Average: e.Round(overall),
		Details: Details{
			Vornote: VornoteDetail{
				Value:   r(KeyVornote),
				Math:    r(KeyVornoteMath),
				Deutsch: r(KeyVornoteGerman),
			},
			Exam: ExamDetail{
				Value: r(KeyExam),
				Math:  r(KeyExamMath),
				Deutsch: GermanDetail{
					Value:             r(KeyExamGerman),
					Aufsatz:           r(KeyExamGermanEssay),
					Sprachbetrachtung: r(KeyExamGermanLanguage),
				},
			},
		},
		Passed: overall >= e.passMark,
	}
}
