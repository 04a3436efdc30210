package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/pebbles-backend/internal/apperror"
	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/internal/usecase"
)

type handlers struct {
	logger *slog.Logger
	uGame  uGame
}

type startGameRequest struct {
	SessionID string            `json:"session_id"`
	Params    entity.InitParams `json:"params"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// startGame - starts a game, issuing a session when the body has none.
func (that *handlers) startGame(w http.ResponseWriter, r *http.Request) {
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}

	if req.SessionID == "" {
		req.SessionID = that.uGame.NewSessionID()
	}

	view, err := that.uGame.StartGame(r.Context(), req.SessionID, req.Params)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (that *handlers) getGame(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	game, err := that.uGame.GetState(r.Context(), sessionID)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usecase.GameView{SessionID: sessionID, Game: game})
}

func (that *handlers) act(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var action entity.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}

	view, err := that.uGame.Act(r.Context(), sessionID, action)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// stats - win tally, optionally narrowed with ?difficulty=easy|hard.
func (that *handlers) stats(w http.ResponseWriter, r *http.Request) {
	difficulty := entity.DifficultyLevel(r.URL.Query().Get("difficulty"))
	if difficulty != "" && !difficulty.IsValid() {
		that.writeError(w, r, apperror.ErrInvalidDifficulty)
		return
	}

	stats, err := that.uGame.Stats(r.Context(), difficulty)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (that *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, text := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed",
			"path", r.URL.Path,
			"requestID", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}

	writeJSON(w, status, errorResponse{Error: text})
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{apperror.ErrGameNotInitialized, http.StatusNotFound},
	{apperror.ErrGameFinished, http.StatusConflict},
	{apperror.ErrNotEnoughPebbles, http.StatusConflict},
	{apperror.ErrInvalidPebbles, http.StatusBadRequest},
	{apperror.ErrInvalidGameParams, http.StatusBadRequest},
	{apperror.ErrInvalidDifficulty, http.StatusBadRequest},
	{apperror.ErrUnknownAction, http.StatusBadRequest},
	{usecase.ErrEmptySessionID, http.StatusBadRequest},
	{usecase.ErrLedgerDisabled, http.StatusServiceUnavailable},
}

func statusFor(err error) (int, string) {
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			return entry.status, entry.err.Error()
		}
	}

	return http.StatusInternalServerError, "Internal Server Error"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
