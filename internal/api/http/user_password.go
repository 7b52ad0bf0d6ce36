package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-assess/internal/identity"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=4"`
}

// POST /users/change-password
func ChangePasswordHandler(users *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := users.ChangePassword(r.Context(), rbac.UserFromContext(r.Context()), req.OldPassword, req.NewPassword); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
