package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/notenpfad/notenpfad/internal/rbac"
)

// Mount registers the authenticated API on r. The caller installs the JWT
// and viewer middleware in front of it.
func Mount(r chi.Router, d Deps) {
	r.Route("/users", func(ur chi.Router) {
		ur.With(rbac.Require("children:create")).Post("/children", CreateChildHandler(d))
		ur.With(rbac.Require("children:delete")).Delete("/children/{childID}", DeleteChildHandler(d))
		ur.With(rbac.Require("children:view")).Get("/{userID}/children", ListChildrenHandler(d))
		ur.With(rbac.Require("user:change_password")).Put("/{userID}/password", ChangePasswordHandler(d))
	})

	r.With(rbac.Require("subjects:view")).Get("/subjects", ListSubjectsHandler(d))
	r.With(rbac.Require("subjects:create")).Post("/subjects", CreateSubjectHandler(d))
	r.With(rbac.Require("subjects:delete")).Delete("/subjects/{subjectID}", DeleteSubjectHandler(d))
	r.With(rbac.Require("topics:view")).Get("/subjects/{subjectID}/topics", ListTopicsHandler(d))

	r.With(rbac.Require("topics:create")).Post("/topics", CreateTopicHandler(d))
	r.With(rbac.Require("topics:toggle")).Put("/topics/{topicID}/toggle", ToggleTopicHandler(d))

	r.With(rbac.Require("grades:view")).Get("/grades", ListGradesHandler(d))
	r.With(rbac.Require("grades:create")).Post("/grades", CreateGradeHandler(d))
	r.With(rbac.Require("grades:delete")).Delete("/grades/{gradeID}", DeleteGradeHandler(d))

	r.With(rbac.Require("average:view")).Get("/average", AverageHandler(d))
	r.With(rbac.Require("prediction:run")).Post("/prediction", PredictionHandler(d))
	// the summary is built from averages, so either grant reads it
	r.With(rbac.RequireAny("summary:view", "average:view")).Get("/summary", SummaryHandler(d))
	r.With(rbac.Require("demo:reset")).Post("/reset", ResetHandler(d))
}
