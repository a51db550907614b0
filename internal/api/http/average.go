package http

import (
	"errors"
	"net/http"

	"github.com/notenpfad/notenpfad/internal/audit"
	"github.com/notenpfad/notenpfad/internal/gradecalc"
	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/report"
	"github.com/notenpfad/notenpfad/internal/validate"
)

const noGradesMessage = "Noch keine Noten vorhanden."

// GET /average?student_id= returns the rounded composite. Results are cached
// per student until the next grade change.
func AverageHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tgt, ok := d.resolveStudent(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		if c, hit := d.Cache.Get(ctx, tgt.Student.ID); hit {
			writeJSON(w, http.StatusOK, c)
			return
		}
		recs, err := d.Store.StudentRecords(ctx, tgt.Student.ID)
		if err != nil {
			d.storeError(w, r, err, "Grade")
			return
		}
		c := d.Engine.Composite(recs.Grades)
		d.Cache.Put(ctx, tgt.Student.ID, c)
		writeJSON(w, http.StatusOK, c)
	}
}

type predictionReq struct {
	TargetAverage  *float64 `json:"target_average" validate:"required"`
	NextExamWeight *float64 `json:"next_exam_weight"`
}

// POST /prediction?student_id=
func PredictionHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predictionReq
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		next := 1.0
		if req.NextExamWeight != nil {
			next = *req.NextExamWeight
		}
		_, tgt, ok := d.resolveStudent(w, r)
		if !ok {
			return
		}
		recs, err := d.Store.StudentRecords(r.Context(), tgt.Student.ID)
		if err != nil {
			d.storeError(w, r, err, "Grade")
			return
		}
		p, err := d.Engine.Project(recs.Grades, recs.Weights, *req.TargetAverage, next)
		if errors.Is(err, gradecalc.ErrInvalidArgument) {
			http.Error(w, "next_exam_weight must be greater than 0", http.StatusBadRequest)
			return
		}
		if err != nil {
			d.logger().Error("prediction", "student", tgt.Student.ID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if p.NoData {
			writeJSON(w, http.StatusOK, map[string]any{
				"required_grade": *req.TargetAverage,
				"message":        noGradesMessage,
			})
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// GET /summary[?student_id=] renders the text summary. Parents without a
// student_id get all of their children.
func SummaryHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		var text string
		if me.Role == notes.RoleParent && r.URL.Query().Get("student_id") == "" {
			kids, err := report.LoadChildren(ctx, d.Store, d.Engine, me.ID)
			if err != nil {
				d.storeError(w, r, err, "Student")
				return
			}
			text = report.ParentText(kids)
		} else {
			_, tgt, ok := d.resolveStudent(w, r)
			if !ok {
				return
			}
			s, err := report.Load(ctx, d.Store, d.Engine, tgt.Student.ID, tgt.Account.OwnerID())
			if err != nil {
				d.storeError(w, r, err, "Student")
				return
			}
			text = report.Text(s)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	}
}

// POST /reset?student_id= deletes the student's grades and un-completes the
// topics of its subject set.
func ResetHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, tgt, ok := d.resolveStudent(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		if err := d.Store.ResetStudent(ctx, tgt.Student.ID, tgt.Account.OwnerID()); err != nil {
			d.storeError(w, r, err, "Student")
			return
		}
		d.Cache.Invalidate(ctx, tgt.Student.ID)
		d.Audit.Record(ctx, audit.DemoReset, tgt.Student.ID, me.ID, nil)
		message(w, "Demo reset successful")
	}
}
