package gradecalc

// Category is the closed set of assessment kinds the formulas know about.
// Grades carry free-form labels; a label belongs to at most one category.
type Category int

const (
	CategoryUnknown Category = iota
	// PreExam covers school-term grades ("Vornote").
	PreExam
	// Exam covers the math part of the entrance exam.
	Exam
	// Essay is the German essay part of the exam ("Aufsatz").
	Essay
	// LanguageAnalysis is the German language part ("Sprachbetrachtung").
	LanguageAnalysis
)

// labelTable lists the literal labels accepted for each category.
// New synonyms go here, matching is exact.
var labelTable = map[Category][]string{
	PreExam:          {"Vornote", "Schulprüfung"},
	Exam:             {"Prüfung", "Gymiprüfung"},
	Essay:            {"Aufsatz", "Aufsatz (Prüfung)", "Aufsatz (Gymiprüfung)"},
	LanguageAnalysis: {"Sprachbetrachtung", "Sprachbetrachtung (Prüfung)", "Sprachbetrachtung (Gymiprüfung)"},
}

var labelIndex = buildLabelIndex(labelTable)

func buildLabelIndex(t map[Category][]string) map[string]Category {
	idx := make(map[string]Category)
	for c, labels := range t {
		for _, l := range labels {
			idx[l] = c
		}
	}
	return idx
}

// CategoryOf returns the category a label belongs to, or CategoryUnknown.
func CategoryOf(label string) Category {
	if c, ok := labelIndex[label]; ok {
		return c
	}
	return CategoryUnknown
}

func (c Category) String() string {
	switch c {
	case PreExam:
		return "pre_exam"
	case Exam:
		return "exam"
	case Essay:
		return "essay"
	case LanguageAnalysis:
		return "language_analysis"
	default:
		return "unknown"
	}
}
