package http

import (
	"net/http"

	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/identity"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
)

type tokenResponse struct {
	Token string        `json:"token"`
	User  identity.User `json:"user"`
}

// POST /auth/register
func RegisterHandler(users *identity.Service, a *authmw.AuthService, enabled bool) http.HandlerFunc {
	type req struct {
		Name       string `json:"name" validate:"required"`
		Email      string `json:"email" validate:"required,email"`
		Password   string `json:"password" validate:"required,min=4"`
		Role       string `json:"role" validate:"required"`
		RollNumber string `json:"rollNumber"`
		Course     string `json:"course"`
		Department string `json:"department"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !enabled {
			writeMessage(w, http.StatusForbidden, "Registration is disabled")
			return
		}
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := users.Register(r.Context(), identity.RegisterInput{
			Name: in.Name, Email: in.Email, Password: in.Password, Role: in.Role,
			RollNumber: in.RollNumber, Course: in.Course, Department: in.Department,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, tokenResponse{Token: tok, User: u})
	}
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(users *identity.Service, a *authmw.AuthService) http.HandlerFunc {
	type req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var in req
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		u, err := users.Login(r.Context(), in.Email, in.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{Token: tok, User: u})
	}
}

// GET /auth/me
func MeHandler(users *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.Get(r.Context(), rbac.UserFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
