package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notenpfad/notenpfad/internal/audit"
	"github.com/notenpfad/notenpfad/internal/notes"
	"github.com/notenpfad/notenpfad/internal/rbac"
	"github.com/notenpfad/notenpfad/internal/validate"
)

func CreateSubjectHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		var req struct {
			Name      string   `json:"name" validate:"notblank,max=100"`
			Weighting *float64 `json:"weighting" validate:"omitempty,gt=0"`
		}
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		sub := notes.Subject{OwnerID: me.OwnerID(), Name: req.Name, Weighting: 1.0}
		if req.Weighting != nil {
			sub.Weighting = *req.Weighting
		}
		sub, err := d.Store.CreateSubject(r.Context(), sub)
		if err != nil {
			d.storeError(w, r, err, "Subject")
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// GET /subjects?skip=&limit= lists the caller's subject set.
func ListSubjectsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, ok := viewer(w, r)
		if !ok {
			return
		}
		limit := queryInt(r, "limit", 100)
		if limit > 500 {
			limit = 500
		}
		subs, err := d.Store.ListSubjects(r.Context(), notes.ListOpts{
			OwnerID: me.OwnerID(),
			Limit:   limit,
			Offset:  queryInt(r, "skip", 0),
		})
		if err != nil {
			d.storeError(w, r, err, "Subject")
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

// subjectFor loads {subjectID} and checks the caller may use it.
func (d Deps) subjectFor(w http.ResponseWriter, r *http.Request, id string) (notes.User, notes.Subject, bool) {
	me, ok := viewer(w, r)
	if !ok {
		return notes.User{}, notes.Subject{}, false
	}
	sub, err := d.Store.GetSubject(r.Context(), id)
	if err != nil {
		d.storeError(w, r, err, "Subject")
		return notes.User{}, notes.Subject{}, false
	}
	if !rbac.CanUseSubject(me, sub) {
		http.Error(w, "Not authorized for this subject", http.StatusForbidden)
		return notes.User{}, notes.Subject{}, false
	}
	return me, sub, true
}

// DELETE /subjects/{subjectID} also deletes the subject's grades and topics.
func DeleteSubjectHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, sub, ok := d.subjectFor(w, r, chi.URLParam(r, "subjectID"))
		if !ok {
			return
		}
		ctx := r.Context()
		affected, err := d.Store.SubjectStudents(ctx, sub.ID)
		if err != nil {
			d.storeError(w, r, err, "Subject")
			return
		}
		if err := d.Store.DeleteSubject(ctx, sub.ID); err != nil {
			d.storeError(w, r, err, "Subject")
			return
		}
		for _, id := range affected {
			d.Cache.Invalidate(ctx, id)
		}
		d.Audit.Record(ctx, audit.SubjectDeleted, sub.ID, me.ID, map[string]any{"name": sub.Name, "students": affected})
		message(w, "Subject and associated grades deleted")
	}
}

func ListTopicsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sub, ok := d.subjectFor(w, r, chi.URLParam(r, "subjectID"))
		if !ok {
			return
		}
		topics, err := d.Store.ListTopics(r.Context(), sub.ID)
		if err != nil {
			d.storeError(w, r, err, "Topic")
			return
		}
		writeJSON(w, http.StatusOK, topics)
	}
}

func CreateTopicHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name" validate:"notblank,max=200"`
			SubjectID   string `json:"subject_id" validate:"required"`
			IsCompleted bool   `json:"is_completed"`
		}
		if err := validate.Decode(r, &req); err != nil {
			validate.WriteError(w, err)
			return
		}
		_, sub, ok := d.subjectFor(w, r, req.SubjectID)
		if !ok {
			return
		}
		t, err := d.Store.CreateTopic(r.Context(), notes.Topic{SubjectID: sub.ID, Name: req.Name, Completed: req.IsCompleted})
		if err != nil {
			d.storeError(w, r, err, "Topic")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// PUT /topics/{topicID}/toggle
func ToggleTopicHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		t, err := d.Store.GetTopic(ctx, chi.URLParam(r, "topicID"))
		if err != nil {
			d.storeError(w, r, err, "Topic")
			return
		}
		me, _, ok := d.subjectFor(w, r, t.SubjectID)
		if !ok {
			return
		}
		t, err = d.Store.ToggleTopic(ctx, t.ID)
		if err != nil {
			d.storeError(w, r, err, "Topic")
			return
		}
		d.Audit.Record(ctx, audit.TopicToggled, t.ID, me.ID, map[string]bool{"is_completed": t.Completed})
		writeJSON(w, http.StatusOK, t)
	}
}
