package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/venkat-budati/medconnect/internal/config"
	"github.com/venkat-budati/medconnect/internal/database"
	"github.com/venkat-budati/medconnect/internal/geo"
	"github.com/venkat-budati/medconnect/internal/lifecycle"
	"github.com/venkat-budati/medconnect/internal/ranker"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	geocoder := geo.NewClient(cfg.Geocoder)

	srv := &server{
		db:        db,
		logger:    logger,
		lifecycle: lifecycle.NewService(db),
		ranker:    ranker.New(geocoder, logger),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/users", srv.handleCreateUser)
	r.Get("/users/{id}", srv.handleGetUser)

	r.Group(func(r chi.Router) {
		r.Use(bearerIdentity)

		r.Post("/medicines", srv.handleCreateMedicine)
		r.Get("/medicines/mine", srv.handleMyMedicines)
		r.Get("/medicines/{id}", srv.handleGetMedicine)
		r.Delete("/medicines/{id}", srv.handleDeleteMedicine)

		r.Get("/browse", srv.handleBrowse)

		r.Post("/requests", srv.handleCreateRequest)
		r.Get("/requests", srv.handleListRequests)
		r.Post("/requests/{id}/accept", srv.handleAcceptRequest)
		r.Post("/requests/{id}/reject", srv.handleRejectRequest)
		r.Post("/requests/{id}/cancel", srv.handleCancelRequest)
		r.Post("/requests/{id}/complete", srv.handleCompleteRequest)
		r.Post("/requests/{id}/fail", srv.handleFailRequest)

		r.Get("/notifications", srv.handleListNotifications)
		r.Post("/notifications/{id}/read", srv.handleMarkNotificationRead)

		r.Get("/stats", srv.handleStats)
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server starting", "port", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
