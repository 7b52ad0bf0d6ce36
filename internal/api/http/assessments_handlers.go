package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/exam"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// GET /assessments  students get the list without questions
func ListAssessmentsHandler(eng *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := eng.ListAssessments(r.Context(), rbac.CallerFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /assessments/{id}  staff view with answer keys
func GetAssessmentHandler(eng *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := eng.GetAssessment(r.Context(), rbac.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /assessments/{id}/attempt
func AttemptHandler(eng *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := eng.Attempt(r.Context(), rbac.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// POST /assessments
func CreateAssessmentHandler(eng *exam.Engine) http.HandlerFunc {
	type req struct {
		Subject         string     `json:"subject" validate:"required"`
		Title           string     `json:"title" validate:"required"`
		Description     string     `json:"description"`
		DurationMinutes int        `json:"durationMinutes" validate:"gte=0"`
		ScheduledAt     *time.Time `json:"scheduledAt"`
		Questions       []string   `json:"questions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		a, err := eng.CreateAssessment(r.Context(), rbac.CallerFromContext(r.Context()), exam.AssessmentInput{
			SubjectID:       in.Subject,
			Title:           in.Title,
			Description:     in.Description,
			DurationMinutes: in.DurationMinutes,
			ScheduledAt:     in.ScheduledAt,
			QuestionIDs:     in.Questions,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// PUT /assessments/{id}
func UpdateAssessmentHandler(eng *exam.Engine) http.HandlerFunc {
	type req struct {
		Title           *string    `json:"title"`
		Description     *string    `json:"description"`
		DurationMinutes *int       `json:"durationMinutes" validate:"omitempty,gt=0"`
		ScheduledAt     *time.Time `json:"scheduledAt"`
		Questions       []string   `json:"questions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		p := exam.AssessmentPatch{
			Title:           in.Title,
			Description:     in.Description,
			DurationMinutes: in.DurationMinutes,
			QuestionIDs:     in.Questions,
		}
		if in.ScheduledAt != nil {
			ms := in.ScheduledAt.UnixMilli()
			p.ScheduledAt = &ms
		}
		a, err := eng.UpdateAssessment(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// DELETE /assessments/{id}
func DeleteAssessmentHandler(eng *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := eng.DeleteAssessment(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "Assessment deleted")
	}
}
