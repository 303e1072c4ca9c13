package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fra-atlas/backend/config"
	"github.com/fra-atlas/backend/internal/claimindex"
	"github.com/fra-atlas/backend/internal/dss"
	"github.com/fra-atlas/backend/internal/extract"
	"github.com/fra-atlas/backend/internal/geocode"
	"github.com/fra-atlas/backend/internal/imagery"
	"github.com/fra-atlas/backend/internal/ocr"
	"github.com/fra-atlas/backend/internal/runtime"
	"github.com/fra-atlas/backend/internal/store"
	"github.com/fra-atlas/backend/models"
	"github.com/fra-atlas/backend/provider"
)

// Run wires the full backend and serves until the listener stops.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn := cfg.Storage.Postgres.DSN()

	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		log.Printf("[MIGRATE] skipped: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	if cfg.General.JWTSecret == "" {
		return fmt.Errorf("jwt secret not configured (general.jwt_secret)")
	}
	secret := []byte(cfg.General.JWTSecret)

	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), provider.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		log.Printf("[LLM] provider disabled: %v", err)
		llm = nil
	}

	geocoder := geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent,
		cfg.Geocoder.Timeout, cfg.Geocoder.RatePerS, cfg.Geocoder.CacheTTL)

	index, err := claimindex.New()
	if err != nil {
		return err
	}
	if existing, err := st.FetchCandidates(ctx, models.LocationFilter{}); err != nil {
		log.Printf("[INDEX] initial load skipped: %v", err)
	} else if err := index.Rebuild(existing); err != nil {
		log.Printf("[INDEX] initial build failed: %v", err)
	}

	classifier, err := imagery.NewClassifier(cfg.Imagery.ModelPath)
	if err != nil {
		log.Printf("[MODEL] land-cover classifier disabled: %v", err)
	}

	if cfg.Imagery.SavedImagesDir != "" {
		if err := os.MkdirAll(cfg.Imagery.SavedImagesDir, 0o755); err != nil {
			log.Printf("[MODEL] saved images dir unavailable: %v", err)
		}
	}

	auth := &AuthHandler{Store: st, Secret: secret, Env: cfg.General.Env}
	authMW := runtime.EchoAuthMiddleware(secret)

	api := e.Group("/api")
	auth.Register(api.Group("/auth"))

	uh := &UploadHandler{
		Store: st,
		OCR:   ocr.NewTesseract(cfg.OCR.Languages),
		Normalizer: &extract.Normalizer{
			LLM:    llm,
			Geo:    geocoder,
			Logger: log.New(log.Writer(), "[UPLOAD] ", log.LstdFlags),
		},
		Index:   index,
		MaxSize: cfg.Upload.MaxSizeBytes,
		Logger:  log.New(log.Writer(), "[UPLOAD] ", log.LstdFlags),
	}
	uh.Register(api.Group("/upload"))

	dssLogger := log.New(log.Writer(), "[DSS] ", log.LstdFlags)
	dh := &DssHandler{
		Store: st,
		Orch: &dss.Orchestrator{
			Store:    st,
			Resolver: &dss.Resolver{Catalog: st, LLM: llm, Logger: dssLogger},
			Logger:   dssLogger,
		},
	}
	dh.Register(api.Group("/dss"), authMW)

	sh := &SearchHandler{
		Store:  st,
		Index:  index,
		Logger: log.New(log.Writer(), "[SEARCH] ", log.LstdFlags),
	}
	sh.Register(api.Group("/search"))

	if classifier != nil {
		ph := &PredictHandler{
			Fetcher: imagery.NewFetcher(cfg.Imagery.ThumbEndpoint, cfg.Imagery.ThumbDim,
				cfg.Imagery.StartDate, cfg.Imagery.EndDate, cfg.Imagery.Timeout),
			Classifier: classifier,
			SavedDir:   cfg.Imagery.SavedImagesDir,
			Logger:     log.New(log.Writer(), "[MODEL] ", log.LstdFlags),
		}
		ph.Register(api.Group("/model"))
	}

	addr := cfg.General.ListenAddr
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
