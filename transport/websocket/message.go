package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/pebbles-backend/internal/apperror"
	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/internal/usecase"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	SessionID string             `json:"session_id,omitempty"`
	Params    *entity.InitParams `json:"params,omitempty"`
	Pebbles   *uint32            `json:"pebbles,omitempty"`
	Game      *entity.GameState  `json:"game,omitempty"`
	Event     *entity.Event      `json:"event,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func newMessage(action string, payload Payload) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	messageBytes, err := json.Marshal(Message{Action: action, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return messageBytes, nil
}

func viewPayload(view *usecase.GameView) Payload {
	return Payload{
		SessionID: view.SessionID,
		Game:      view.Game,
		Event:     view.Event,
	}
}

// clientErrors are safe to show to the player as is.
var clientErrors = []error{
	apperror.ErrGameNotInitialized,
	apperror.ErrGameFinished,
	apperror.ErrInvalidPebbles,
	apperror.ErrNotEnoughPebbles,
	apperror.ErrInvalidGameParams,
	apperror.ErrInvalidDifficulty,
	apperror.ErrUnknownAction,
	usecase.ErrEmptySessionID,
}

// errorText - hides internal failures from the player.
func errorText(err error) (string, bool) {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}

	return "internal error", false
}
