package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/internal/usecase"
)

// handleConnect - binds the connection to a session, issuing a new one when the client has none.
func (that *Server) handleConnect(ctx context.Context, client *client, msg *Message) error {
	log := that.logger.With("method", "handleConnect")

	payloadReq, err := decodePayload(msg)
	if err != nil {
		that.sendError(client, msg.Action, "malformed payload")
		return err
	}

	client.sessionID = payloadReq.SessionID
	if client.sessionID == "" {
		client.sessionID = that.uGame.NewSessionID()
	}

	payloadResp := Payload{SessionID: client.sessionID}

	// a returning player gets the game back
	if game, err := that.uGame.GetState(ctx, client.sessionID); err == nil {
		payloadResp.Game = game
	}

	that.sendMessage(client, msg.Action, payloadResp)

	log.Info("successfully connected player", "sessionID", client.sessionID)

	return nil
}

func (that *Server) handleNewGame(ctx context.Context, client *client, msg *Message) error {
	payloadReq, sessionID, ok := that.sessionPayload(client, msg)
	if !ok {
		return nil
	}

	if payloadReq.Params == nil {
		that.sendError(client, msg.Action, "params are required")
		return nil
	}

	view, err := that.uGame.StartGame(ctx, sessionID, *payloadReq.Params)

	return that.reply(client, msg.Action, view, err)
}

func (that *Server) handleGameTurn(ctx context.Context, client *client, msg *Message) error {
	payloadReq, sessionID, ok := that.sessionPayload(client, msg)
	if !ok {
		return nil
	}

	if payloadReq.Pebbles == nil {
		that.sendError(client, msg.Action, "pebbles are required")
		return nil
	}

	view, err := that.uGame.Act(ctx, sessionID, entity.TurnAction(*payloadReq.Pebbles))

	return that.reply(client, msg.Action, view, err)
}

func (that *Server) handleGiveUp(ctx context.Context, client *client, msg *Message) error {
	_, sessionID, ok := that.sessionPayload(client, msg)
	if !ok {
		return nil
	}

	view, err := that.uGame.Act(ctx, sessionID, entity.GiveUpAction())

	return that.reply(client, msg.Action, view, err)
}

func (that *Server) handleRestart(ctx context.Context, client *client, msg *Message) error {
	payloadReq, sessionID, ok := that.sessionPayload(client, msg)
	if !ok {
		return nil
	}

	if payloadReq.Params == nil {
		that.sendError(client, msg.Action, "params are required")
		return nil
	}

	view, err := that.uGame.Act(ctx, sessionID, entity.RestartAction(*payloadReq.Params))

	return that.reply(client, msg.Action, view, err)
}

func (that *Server) handleState(ctx context.Context, client *client, msg *Message) error {
	_, sessionID, ok := that.sessionPayload(client, msg)
	if !ok {
		return nil
	}

	game, err := that.uGame.GetState(ctx, sessionID)
	if err != nil {
		return that.reply(client, msg.Action, nil, err)
	}

	that.sendMessage(client, msg.Action, Payload{SessionID: sessionID, Game: game})

	return nil
}

func (that *Server) handleGameLeave(ctx context.Context, client *client, msg *Message) error {
	log := that.logger.With("method", "handleGameLeave")

	_, sessionID, ok := that.sessionPayload(client, msg)
	if !ok {
		return nil
	}

	if err := that.uGame.EndGame(ctx, sessionID); err != nil {
		return that.reply(client, msg.Action, nil, err)
	}

	that.sendMessage(client, msg.Action, Payload{SessionID: sessionID})

	log.Info("player left the game", "sessionID", sessionID)

	return nil
}

// sessionPayload decodes the payload and picks the session: the one in the payload wins
// over the one bound by connect. It answers the client itself when either is missing.
func (that *Server) sessionPayload(client *client, msg *Message) (Payload, string, bool) {
	payloadReq, err := decodePayload(msg)
	if err != nil {
		that.logger.Error("failed to decode payload", "action", msg.Action, "error", err)
		that.sendError(client, msg.Action, "malformed payload")
		return Payload{}, "", false
	}

	sessionID := payloadReq.SessionID
	if sessionID == "" {
		sessionID = client.sessionID
	}

	if sessionID == "" {
		that.sendError(client, msg.Action, "session is required, send connect first")
		return Payload{}, "", false
	}

	return payloadReq, sessionID, true
}

// reply sends either the game view or the error to the client.
// Only failures the player cannot fix are returned for logging.
func (that *Server) reply(client *client, action string, view *usecase.GameView, err error) error {
	if err == nil {
		that.sendMessage(client, action, viewPayload(view))
		return nil
	}

	text, expected := errorText(err)
	that.sendError(client, action, text)

	if expected {
		return nil
	}

	return fmt.Errorf("failed to handle %s: %w", action, err)
}

func decodePayload(msg *Message) (Payload, error) {
	var payload Payload

	if len(msg.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}

func (that *Server) sendError(client *client, action, errorMsg string) {
	that.sendMessage(client, action, Payload{Error: errorMsg})
}

func (that *Server) sendMessage(client *client, action string, payload Payload) {
	log := that.logger.With("method", "sendMessage")

	message, err := newMessage(action, payload)
	if err != nil {
		log.Error("failed to build message", "error", err)
		return
	}

	select {
	case client.send <- message:
	default:
		log.Warn("send buffer is full, dropping message", "action", action)
	}
}
