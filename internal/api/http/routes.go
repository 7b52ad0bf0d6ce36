package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/catalog"
	"github.com/mind-engage/mindengage-assess/internal/exam"
	"github.com/mind-engage/mindengage-assess/internal/identity"
	"github.com/mind-engage/mindengage-assess/internal/rbac"
	"github.com/mind-engage/mindengage-assess/internal/report"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

type Services struct {
	DB      *sql.DB
	Auth    *authmw.AuthService
	Users   *identity.Service
	Catalog *catalog.Service
	Exam    *exam.Engine
	Report  *report.Service
	Events  *syncx.EventRepo

	EnableRegistration bool
}

// Mount registers every API route on r. Protected routes run
// JWT -> role from users table -> RBAC before the handler.
func Mount(r chi.Router, s Services) {
	r.Post("/auth/register", RegisterHandler(s.Users, s.Auth, s.EnableRegistration))
	r.Post("/auth/login", LoginHandler(s.Users, s.Auth))

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(s.Auth))
		pr.Use(authmw.AttachRoleFromDB(s.DB))

		pr.Get("/auth/me", MeHandler(s.Users))

		pr.Route("/subjects", func(sr chi.Router) {
			sr.With(rbac.Require("subject:view")).Get("/", ListSubjectsHandler(s.Catalog))
			sr.With(rbac.Require("subject:view")).Get("/{id}", GetSubjectHandler(s.Catalog))
			sr.With(rbac.Require("subject:manage")).Post("/", CreateSubjectHandler(s.Catalog))
			sr.With(rbac.Require("subject:manage")).Put("/{id}", UpdateSubjectHandler(s.Catalog))
			sr.With(rbac.Require("subject:manage")).Put("/{id}/assign-teachers", AssignTeachersHandler(s.Catalog))
			sr.With(rbac.Require("subject:manage")).Delete("/{id}", DeleteSubjectHandler(s.Catalog))
		})

		pr.Route("/questions", func(qr chi.Router) {
			qr.With(rbac.Require("question:view")).Get("/", ListQuestionsHandler(s.Catalog))
			qr.With(rbac.Require("question:create")).Post("/", CreateQuestionHandler(s.Catalog))
			qr.With(rbac.Require("question:update-own")).Put("/{id}", UpdateQuestionHandler(s.Catalog))
			qr.With(rbac.Require("question:delete")).Delete("/{id}", DeleteQuestionHandler(s.Catalog))
		})

		pr.Route("/assessments", func(ar chi.Router) {
			ar.With(rbac.Require("assessment:list")).Get("/", ListAssessmentsHandler(s.Exam))
			ar.With(rbac.Require("assessment:view")).Get("/{id}", GetAssessmentHandler(s.Exam))
			ar.With(rbac.Require("attempt:start")).Get("/{id}/attempt", AttemptHandler(s.Exam))
			ar.With(rbac.Require("assessment:manage")).Post("/", CreateAssessmentHandler(s.Exam))
			ar.With(rbac.Require("assessment:manage")).Put("/{id}", UpdateAssessmentHandler(s.Exam))
			ar.With(rbac.Require("assessment:manage")).Delete("/{id}", DeleteAssessmentHandler(s.Exam))
		})

		pr.Route("/results", func(rr chi.Router) {
			rr.With(rbac.Require("result:submit")).Post("/submit", SubmitHandler(s.Exam))
			rr.With(rbac.Require("result:view-own")).Get("/my-results", MyResultsHandler(s.Exam))
			rr.With(rbac.Require("dashboard:view")).Get("/dashboard-stats", DashboardStatsHandler(s.Report))
			rr.With(rbac.Require("result:view-student")).Get("/student/{studentId}", StudentResultsHandler(s.Exam))
		})

		pr.Route("/users", func(ur chi.Router) {
			ur.With(rbac.Require("users:list")).Get("/", ListUsersHandler(s.Users))
			ur.Post("/change-password", ChangePasswordHandler(s.Users))
			ur.With(rbac.Require("users:view")).Get("/{id}", GetUserHandler(s.Users))
			ur.Put("/{id}", UpdateUserHandler(s.Users))
			ur.With(rbac.Require("users:assign")).Put("/{id}/assign-subjects", AssignSubjectsHandler(s.Users))
			ur.With(rbac.Require("users:role")).Put("/{id}/role", AdminUpdateUserRoleHandler(s.Users))
		})

		pr.With(rbac.Require("events:read")).Get("/events", EventFeedHandler(s.Events))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			writeMessage(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(200)
	})
}
