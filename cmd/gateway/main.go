package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/mindengage-assess/internal/api/http"
	auth "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/catalog"
	"github.com/mind-engage/mindengage-assess/internal/config"
	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/exam"
	"github.com/mind-engage/mindengage-assess/internal/identity"
	"github.com/mind-engage/mindengage-assess/internal/report"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

func main() {
	cfg := config.Load()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	// --- Services ---
	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	examStore := exam.NewSQLStore(dbh)
	engine := exam.NewEngine(examStore, events, time.Now)
	services := api.Services{
		DB:                 dbh,
		Auth:               auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Users:              identity.NewService(identity.NewSQLStore(dbh), bcrypt.DefaultCost, time.Now),
		Catalog:            catalog.NewService(catalog.NewSQLStore(dbh), engine, time.Now),
		Exam:               engine,
		Report:             report.NewService(examStore),
		Events:             events,
		EnableRegistration: cfg.EnableRegistration,
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, services)

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
