package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/catalog"
)

type subjectReq struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func ListSubjectsHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cat.ListSubjects(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetSubjectHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cat.GetSubject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func CreateSubjectHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in subjectReq
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		s, err := cat.CreateSubject(r.Context(), catalog.SubjectInput{Name: in.Name, Description: in.Description})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

func UpdateSubjectHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in subjectReq
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		s, err := cat.UpdateSubject(r.Context(), chi.URLParam(r, "id"), catalog.SubjectInput{Name: in.Name, Description: in.Description})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// PUT /subjects/{id}/assign-teachers  { "teacherIds": [...] }
func AssignTeachersHandler(cat *catalog.Service) http.HandlerFunc {
	type req struct {
		TeacherIDs []string `json:"teacherIds" validate:"required"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		s, err := cat.AssignTeachers(r.Context(), chi.URLParam(r, "id"), in.TeacherIDs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func DeleteSubjectHandler(cat *catalog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := cat.GetSubject(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		if err := cat.DeleteSubject(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, "Subject deleted")
	}
}
