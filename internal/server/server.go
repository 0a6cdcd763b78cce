package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/storekit-community/appstore-server-go/internal/appstore"
	"github.com/storekit-community/appstore-server-go/internal/config"
	"github.com/storekit-community/appstore-server-go/internal/crypto"
	"github.com/storekit-community/appstore-server-go/internal/logger"
	"github.com/storekit-community/appstore-server-go/internal/server/handlers"
	"github.com/storekit-community/appstore-server-go/internal/server/middleware"
)

type Server struct {
	config   *config.ServerEnvironment
	logger   *slog.Logger
	router   *chi.Mux
	verifier *appstore.SignedDataVerifier
}

func NewServer(
	cfg *config.ServerEnvironment,
	verifier *appstore.SignedDataVerifier,
	logger *slog.Logger,
) (*Server, error) {
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}

	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		verifier: verifier,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID(s.logger))
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(middleware.RequestSizeLimit(s.config.MaxRequestBodySize))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/version", handlers.HandleVersion())

	s.router.Route("/v2", func(r chi.Router) {
		r.Post("/notifications", s.handleNotification)
	})
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Router exposes the underlying mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// notificationRequest is the ResponseBodyV2 shape the App Store posts to
// the notification URL.
type notificationRequest struct {
	SignedPayload string `json:"signedPayload"`
}

// handleNotification verifies an App Store Server Notification and logs its
// content. The store retries delivery on any non-2xx response, so the
// status code is the whole contract: 204 accepts the notification, 401
// rejects payloads that fail verification, 400 rejects requests that are
// not notifications at all.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	reqLogger := logger.ContextRequestLogger(r.Context())

	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	if req.SignedPayload == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "signedPayload is required")
		return
	}

	result, err := s.verifier.VerifyNotification(r.Context(), req.SignedPayload)
	if err != nil {
		status := http.StatusUnauthorized
		code := "verification_failed"

		var cryptoErr *crypto.CryptoError
		if errors.As(err, &cryptoErr) && cryptoErr.Code() == crypto.ErrCodeJWSFormat {
			status = http.StatusBadRequest
			code = "invalid_payload"
		}

		reqLogger.Warn("notification rejected",
			slog.String("error", err.Error()))
		respondError(w, status, code, "signed payload verification failed")
		return
	}

	payload := result.Payload
	if payload.NotificationUUID != "" {
		if _, err := uuid.Parse(payload.NotificationUUID); err != nil {
			reqLogger.Warn("notification UUID is not a valid UUID",
				slog.String("notification_uuid", payload.NotificationUUID))
		}
	}

	attrs := []any{
		slog.String("notification_type", string(payload.NotificationType)),
		slog.String("notification_uuid", payload.NotificationUUID),
		slog.String("trust", result.TrustSource.String()),
	}
	if payload.Subtype != "" {
		attrs = append(attrs, slog.String("subtype", string(payload.Subtype)))
	}
	if result.RevocationWarning != nil {
		attrs = append(attrs, slog.String("revocation_warning", result.RevocationWarning.Error()))
	}
	reqLogger.Info("notification accepted", attrs...)

	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
