package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/room4-2/dinedialog/config"
	"github.com/room4-2/dinedialog/messages"
	"github.com/room4-2/dinedialog/session"
)

type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
	logger         *zap.Logger
}

// NewServer wires the websocket endpoint, the REST API, health and metrics.
func NewServer(cfg *config.Config, sessionManager *session.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		logger:         logger.Named("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Check allowed origins
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second + cfg.ResponseDelay,
	}

	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/sessions", s.handleCreateSession)
	api.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	api.HandleFunc("POST /api/sessions/{id}/utterances", s.handleUtterance)
	api.HandleFunc("POST /api/sessions/{id}/restart", s.handleRestart)
	api.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/api/", corsHandler.Handler(api))
	return mux
}

// Start begins listening for connections
func (s *Server) Start() error {
	s.logger.Info("server starting",
		zap.Int("port", s.config.Port),
		zap.String("websocket", fmt.Sprintf("ws://localhost:%d/ws", s.config.Port)),
	)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	// drain in-flight REST turns before their sessions go away
	err := s.httpServer.Shutdown(ctx)
	s.sessionManager.Shutdown()
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	conv, err := s.sessionManager.CreateSession(r.Context(), "ws")
	if err != nil {
		s.logger.Warn("failed to create session", zap.Error(err))
		// Send error and close
		if data, encErr := messages.Encode(messages.NewErrorMessage("", messages.ErrCodeSessionFailed, err.Error())); encErr == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		_ = conn.Close()
		return
	}

	clientSession := session.NewClientSession(conv, conn, s.sessionManager, s.config.KeepAlivePeriod, s.logger)

	// Start session (handles messages in goroutines)
	clientSession.Start()

	// Wait for session to close
	<-clientSession.CloseChan

	// Clean up; the manager may already have dropped it
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.sessionManager.RemoveSession(ctx, clientSession.ID, clientSession.CloseReason())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messages.HealthResponse{
		Status:   "ok",
		Sessions: s.sessionManager.GetActiveSessionCount(),
	})
}
