package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/internal/usecase"
)

type uGame interface {
	NewSessionID() string

	StartGame(ctx context.Context, sessionID string, params entity.InitParams) (*usecase.GameView, error)
	Act(ctx context.Context, sessionID string, action entity.Action) (*usecase.GameView, error)
	GetState(ctx context.Context, sessionID string) (*entity.GameState, error)
	Stats(ctx context.Context, difficulty entity.DifficultyLevel) (*entity.Stats, error)
}

// NewRouter - builds the HTTP API around the game use case.
func NewRouter(logger *slog.Logger, uGame uGame) http.Handler {
	h := &handlers{
		logger: logger.With("component", "rest"),
		uGame:  uGame,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ping", h.ping)

	r.Route("/api", func(r chi.Router) {
		r.Post("/games", h.startGame)
		r.Get("/games/{sessionID}", h.getGame)
		r.Post("/games/{sessionID}/actions", h.act)
		r.Get("/stats", h.stats)
	})

	return r
}

// Start - serves the handler on the port and stops it when ctx is done.
func Start(ctx context.Context, port string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
