// Package server provides the HTTP REST API for the agent workflow engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/engine"
	"github.com/voxlane/voxlane/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	coordinator *engine.Coordinator
	authHandler *AuthHandler
	jwtService  *JWTService
	handler     http.Handler
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance. JWT and secret-hashing settings come
// from the environment.
func New(cfg Config, coordinator *engine.Coordinator, tenants TenantStore) (*Server, error) {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	jwtService := NewJWTService(jwtConfig)

	secretConfig, err := config.NewSecretConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create secret config: %w", err)
	}

	s := &Server{
		coordinator: coordinator,
		jwtService:  jwtService,
		authHandler: NewAuthHandler(tenants, secretConfig, jwtService),
	}

	// Public routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", s.handleToken)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Tenant-scoped routes behind JWT auth
	api := http.NewServeMux()
	api.HandleFunc("POST /agents", s.handleCreateAgent)
	api.HandleFunc("GET /workflows", s.handleListWorkflows)
	api.HandleFunc("GET /workflows/{id}", s.handleGetWorkflow)
	api.HandleFunc("GET /workflows/{id}/snapshot", s.handleGetSnapshot)
	api.HandleFunc("GET /workflows/{id}/records", s.handleListStageRecords)
	api.HandleFunc("POST /workflows/{id}/validation", s.handleSubmitValidation)
	api.HandleFunc("POST /workflows/{id}/abort", s.handleAbort)
	api.HandleFunc("GET /workflows/{id}/events", s.handleEvents)

	auth := middleware.AuthMiddleware(jwtService.AsTokenValidator())
	mux.Handle("POST /agents", auth(api))
	mux.Handle("/workflows/", auth(api))
	mux.Handle("GET /workflows", auth(api))

	s.handler = s.withLogging(s.withCORS(mux))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open for the workflow lifetime
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler exposes the configured routes (for tests).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := s.coordinator.Shutdown(ctx); err != nil {
		log.Printf("coordinator shutdown: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleToken handles tenant token requests.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.authHandler.Token(w, r)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
