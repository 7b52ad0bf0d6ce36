package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/catalog"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// GET /questions?subject=<id>
func ListQuestionsHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cat.ListQuestions(r.Context(), r.URL.Query().Get("subject"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /questions  { subject, questionText, options, correctAnswer, difficulty }
func CreateQuestionHandler(cat *catalog.Service) http.HandlerFunc {
	type req struct {
		Subject       string   `json:"subject" validate:"required"`
		QuestionText  string   `json:"questionText" validate:"required"`
		Options       []string `json:"options" validate:"required,min=1,dive,required"`
		CorrectAnswer string   `json:"correctAnswer" validate:"required"`
		Difficulty    string   `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := cat.CreateQuestion(r.Context(), rbac.CallerFromContext(r.Context()), catalog.QuestionInput{
			SubjectID:     in.Subject,
			QuestionText:  in.QuestionText,
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
			Difficulty:    in.Difficulty,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /questions/{id}
func UpdateQuestionHandler(cat *catalog.Service) http.HandlerFunc {
	type req struct {
		QuestionText  *string  `json:"questionText"`
		Options       []string `json:"options" validate:"omitempty,min=1,dive,required"`
		CorrectAnswer *string  `json:"correctAnswer"`
		Difficulty    *string  `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := cat.UpdateQuestion(r.Context(), rbac.CallerFromContext(r.Context()), chi.URLParam(r, "id"), catalog.QuestionPatch{
			QuestionText:  in.QuestionText,
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
			Difficulty:    in.Difficulty,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /questions/{id}
func DeleteQuestionHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cat.DeleteQuestion(r.Context(), rbac.CallerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "Question deleted")
	}
}
