package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notenpfad/notenpfad/internal/audit"
	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/rbac"
	"github.com/notenpfad/notenpfad/internal/validate"
)

type createGradeReq struct {
	Value     float64 `json:"value"`
	SubjectID string  `json:"subject_id" validate:"required"`
	Type      string  `json:"type" validate:"max=64"`
	Date      string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// POST /grades?student_id=
func CreateGradeHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGradeReq
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		me, tgt, ok := d.resolveStudent(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		sub, err := d.Store.GetSubject(ctx, req.SubjectID)
		if err != nil {
			d.storeError(w, r, err, "Subject")
			return
		}
		if !rbac.CanUseSubject(me, sub) {
			http.Error(w, "Not authorized for this subject", http.StatusForbidden)
			return
		}
		g, err := d.Store.CreateGrade(ctx, notes.Grade{
			StudentID: tgt.Student.ID,
			SubjectID: sub.ID,
			Value:     req.Value,
			Type:      req.Type,
			Date:      req.Date,
		})
		if err != nil {
			d.storeError(w, r, err, "Grade")
			return
		}
		d.Cache.Invalidate(ctx, tgt.Student.ID)
		d.Audit.Record(ctx, audit.GradeRecorded, tgt.Student.ID, me.ID, g)
		writeJSON(w, http.StatusOK, g)
	}
}

// GET /grades?student_id=
func ListGradesHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, tgt, ok := d.resolveStudent(w, r)
		if !ok {
			return
		}
		grades, err := d.Store.ListGrades(r.Context(), tgt.Student.ID)
		if err != nil {
			d.storeError(w, r, err, "Grade")
			return
		}
		writeJSON(w, http.StatusOK, grades)
	}
}

// DELETE /grades/{gradeID}
func DeleteGradeHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		g, err := d.Store.GetGrade(ctx, chi.URLParam(r, "gradeID"))
		if err != nil {
			d.storeError(w, r, err, "Grade")
			return
		}
		st, err := d.Store.GetStudent(ctx, g.StudentID)
		if err != nil {
			d.storeError(w, r, err, "Student")
			return
		}
		if _, _, ok := d.authorizeStudent(w, r, me, st); !ok {
			return
		}
		if err := d.Store.DeleteGrade(ctx, g.ID); err != nil {
			d.storeError(w, r, err, "Grade")
			return
		}
		d.Cache.Invalidate(ctx, st.ID)
		d.Audit.Record(ctx, audit.GradeDeleted, st.ID, me.ID, g)
		message(w, "Grade deleted")
	}
}
