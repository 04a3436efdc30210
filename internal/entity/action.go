package entity

import (
	"fmt"

	"github.com/rocketscienceinc/pebbles-backend/internal/apperror"
)

const (
	ActionTurn    = "turn"
	ActionGiveUp  = "give_up"
	ActionRestart = "restart"

	EventWon         = "won"
	EventCounterTurn = "counter_turn"
)

// Action is a move sent by the User. Pebbles is used by turn actions,
// the embedded InitParams by restart actions.
type Action struct {
	Type    string `json:"type"`
	Pebbles uint32 `json:"pebbles,omitempty"`

	InitParams
}

func TurnAction(pebbles uint32) Action {
	return Action{Type: ActionTurn, Pebbles: pebbles}
}

func GiveUpAction() Action {
	return Action{Type: ActionGiveUp}
}

func RestartAction(params InitParams) Action {
	return Action{Type: ActionRestart, InitParams: params}
}

func (that Action) Validate() error {
	switch that.Type {
	case ActionTurn, ActionGiveUp:
		return nil
	case ActionRestart:
		return that.InitParams.Validate()
	default:
		return fmt.Errorf("%w: %q", apperror.ErrUnknownAction, that.Type)
	}
}

// Event is the engine's answer to an action.
type Event struct {
	Type             string  `json:"type"`
	Winner           *Player `json:"winner,omitempty"`
	PebblesRemaining uint32  `json:"pebbles_remaining,omitempty"`
}

func WonEvent(player Player) *Event {
	return &Event{Type: EventWon, Winner: PlayerPtr(player)}
}

func CounterTurnEvent(pebblesRemaining uint32) *Event {
	return &Event{Type: EventCounterTurn, PebblesRemaining: pebblesRemaining}
}

func (that *Event) IsWon() bool {
	return that != nil && that.Type == EventWon
}
