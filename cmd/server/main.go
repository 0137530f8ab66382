package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/trailmap/trailmap/internal/asset"
	"github.com/trailmap/trailmap/internal/auth"
	"github.com/trailmap/trailmap/internal/config"
	"github.com/trailmap/trailmap/internal/db"
	"github.com/trailmap/trailmap/internal/learningmap"
	"github.com/trailmap/trailmap/internal/live"
	mw "github.com/trailmap/trailmap/internal/middleware"
	"github.com/trailmap/trailmap/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	mapService := learningmap.NewService(st)
	mapHandler := learningmap.NewHandler(mapService)

	hub := live.NewHub(mapService, st)
	go hub.Run()

	allowedOrigins := strings.Split(cfg.AllowedOrigins, ",")
	liveHandler := live.NewHandler(hub, authService, allowedOrigins)

	assetHandler := asset.NewHandler(cfg.AssetDir)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Background image endpoints
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET")

	api.HandleFunc("/maps", mapHandler.List).Methods("GET")
	api.HandleFunc("/maps", mapHandler.Create).Methods("POST")
	api.HandleFunc("/maps/{mapId}", mapHandler.Get).Methods("GET")
	api.HandleFunc("/maps/{mapId}", mapHandler.Save).Methods("PUT")
	api.HandleFunc("/maps/{mapId}", mapHandler.Delete).Methods("DELETE")
	api.HandleFunc("/maps/{mapId}/render", mapHandler.Render).Methods("GET")
	api.HandleFunc("/courses/{courseId}/modules", mapHandler.UpsertModule).Methods("POST")

	// WebSocket endpoint (token auth happens inside the handler)
	r.HandleFunc("/ws/maps/{mapId}", liveHandler.Connect)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
