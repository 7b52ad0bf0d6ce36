package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/exam"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	"github.com/mind-engage/mindengage-assess/internal/report"
)

// POST /results/submit  { assessmentId, answers: {questionId: answer}, isFinal }
// isFinal defaults to true when omitted.
func SubmitHandler(eng *exam.Engine) http.HandlerFunc {
	type req struct {
		AssessmentID string            `json:"assessmentId" validate:"required"`
		Answers      map[string]string `json:"answers"`
		IsFinal      *bool             `json:"isFinal"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		final := true
		if in.IsFinal != nil {
			final = *in.IsFinal
		}
		res, err := eng.Submit(r.Context(), rbac.CallerFromContext(r.Context()), exam.SubmitInput{
			AssessmentID: in.AssessmentID,
			Answers:      in.Answers,
			Final:        final,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// GET /results/my-results
func MyResultsHandler(eng *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := eng.Results(r.Context(), rbac.UserFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rs)
	}
}

// GET /results/student/{studentId}
func StudentResultsHandler(eng *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := eng.Results(r.Context(), chi.URLParam(r, "studentId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rs)
	}
}

// GET /results/dashboard-stats
func DashboardStatsHandler(rep *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := rep.DashboardStats(r.Context(), rbac.UserFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
