package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/identity"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

// GET /users?role=student
func ListUsersHandler(users *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /users/{id}
func GetUserHandler(users *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// PUT /users/{id}  self or admin
func UpdateUserHandler(users *identity.Service) http.HandlerFunc {
	type req struct {
		Name       string `json:"name" validate:"required"`
		RollNumber string `json:"rollNumber"`
		Course     string `json:"course"`
		Department string `json:"department"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		c := rbac.CallerFromContext(r.Context())
		u, err := users.UpdateProfile(r.Context(), c.ID, c.Role, chi.URLParam(r, "id"), identity.Profile{
			Name: in.Name, RollNumber: in.RollNumber, Course: in.Course, Department: in.Department,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// PUT /users/{id}/assign-subjects  { "subjectIds": [...] }
func AssignSubjectsHandler(users *identity.Service) http.HandlerFunc {
	type req struct {
		SubjectIDs []string `json:"subjectIds" validate:"required"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := users.AssignSubjects(r.Context(), chi.URLParam(r, "id"), in.SubjectIDs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
