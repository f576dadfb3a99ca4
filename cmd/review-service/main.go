package main

import (
	"fmt"
	"os"

	"github.com/nurpe/lab-review/internal/auth"
	"github.com/nurpe/lab-review/internal/config"
	"github.com/nurpe/lab-review/internal/db"
	"github.com/nurpe/lab-review/internal/documents"
	"github.com/nurpe/lab-review/internal/excel"
	"github.com/nurpe/lab-review/internal/gateway"
	httphandler "github.com/nurpe/lab-review/internal/http"
	"github.com/nurpe/lab-review/internal/http/middleware"
	"github.com/nurpe/lab-review/internal/logger"
	"github.com/nurpe/lab-review/internal/pdf"
	"github.com/nurpe/lab-review/internal/repository"
	"github.com/nurpe/lab-review/internal/review"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	client := gateway.New(cfg.API.BaseURL, cfg.API.Timeout, log)

	var (
		recorder review.Recorder = review.NopRecorder{}
		audit    httphandler.AuditReader
	)
	if cfg.DB.DSN != "" {
		database, err := db.New(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect database")
		}
		auditRepo := repository.NewAuditRepository(database)
		recorder = auditRepo
		audit = auditRepo
	} else {
		log.Info().Msg("DB_DSN is empty, decision journal disabled")
	}

	controller := review.NewController(
		review.NewFetcher(client, log),
		review.NewSubmitter(client, cfg.Review.RequireAcceptComment, log),
		review.NewLister(client),
		recorder,
		cfg.Review.ListLimit,
		log,
	)

	handler := httphandler.NewHandler(httphandler.Dependencies{
		Reviews:   controller,
		Documents: documents.NewExchange(client, log),
		PDF:       pdf.NewGenerator(),
		Excel:     excel.NewGenerator(),
		Audit:     audit,
		ListLimit: cfg.Review.ListLimit,
	}, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.CORSAllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting review service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
