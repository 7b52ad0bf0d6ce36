package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-assess/internal/identity"
)

type updateUserRoleReq struct {
	Role string `json:"role" validate:"required"`
}

// PUT /users/{id}/role  admin only
func AdminUpdateUserRoleHandler(users *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateUserRoleReq
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := users.SetRole(r.Context(), chi.URLParam(r, "id"), req.Role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
