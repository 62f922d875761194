package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pequito193/PCD-Projeto/internal/admin"
	"github.com/pequito193/PCD-Projeto/internal/gateway"
	"github.com/pequito193/PCD-Projeto/internal/quiz"
	"github.com/pequito193/PCD-Projeto/internal/session"
)

func setupServer(ctx context.Context, cfg *Config, registry *session.Registry, quizzes *quiz.Repository) *http.Server {
	router := mux.NewRouter()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	wsHandler := gateway.NewHandler(ctx, registry, gateway.DefaultConfig())
	wsHandler.RegisterRoutes(router)

	adminHandler := admin.NewHandler(registry, quizzes)
	adminHandler.RegisterRoutes(router)

	setupHealthCheck(router)

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: c.Handler(router),
	}
}

func setupHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
