package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
	"github.com/onatuner/tap-or-tarp-sub001/internal/protocol"
)

// dispatch is the single entry point for inbound frames: rate limits, then
// parse, then the closed type registry, then the handler. Every failure
// turns into an error event on the sending connection only.
func (h *Hub) dispatch(ctx context.Context, c *Client, raw []byte) {
	h.metrics.Messages.Add(1)

	// Both windows see every frame, so one throttled connection cannot
	// shield its IP from the shared limit.
	allowConn := h.limitConn.Allow(c.id)
	allowIP := h.limitIP.Allow(c.ip)
	if !allowConn || !allowIP {
		h.sendError(c, game.ErrRateLimited)
		return
	}

	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendError(c, &game.Error{Kind: game.KindInvalidJSON, Message: "Invalid message format"})
		return
	}
	if !protocol.Known(env.Type) {
		h.sendError(c, &game.Error{Kind: game.KindUnknownMessageType, Message: "Unknown message type"})
		return
	}

	ctx, span := h.tracer.Start(ctx, "message."+string(env.Type))
	span.SetAttributes(
		attribute.String("client.id", c.id),
		attribute.String("game.id", c.GameID()),
	)
	err := h.handle(ctx, c, env)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.sendError(c, err)
	}
	span.End()
}

func (h *Hub) sendError(c *Client, err error) {
	h.metrics.Errors.Add(1)
	var gerr *game.Error
	if !errors.As(err, &gerr) {
		slog.Error("unclassified error on wire", "client_id", c.id, "error", err)
		gerr = game.ErrInternal
	}
	h.bus.Send(c, protocol.EvError, protocol.ErrorData{
		Kind:    string(gerr.Kind),
		Message: gerr.Message,
	})
	slog.Debug("request rejected",
		"client_id", c.id,
		"game_id", c.GameID(),
		"kind", gerr.Kind,
		"message", gerr.Message,
	)
}

func (h *Hub) handle(ctx context.Context, c *Client, env protocol.Envelope) error {
	switch env.Type {
	case protocol.MsgCreate:
		return h.handleCreate(ctx, c, env.Data)
	case protocol.MsgJoin:
		return h.handleJoin(ctx, c, env.Data)
	case protocol.MsgStart:
		return h.handleStart(ctx, c)
	case protocol.MsgPause:
		return h.handlePause(ctx, c)
	case protocol.MsgReset:
		return h.handleReset(ctx, c)
	case protocol.MsgSwitch:
		return h.handleSwitch(ctx, c, env.Data)
	case protocol.MsgClaim:
		return h.handleClaim(ctx, c, env.Data)
	case protocol.MsgUnclaim:
		return h.handleUnclaim(ctx, c)
	case protocol.MsgReconnect:
		return h.handleReconnect(ctx, c, env.Data)
	case protocol.MsgUpdatePlayer:
		return h.handleUpdatePlayer(ctx, c, env.Data)
	case protocol.MsgAddPenalty:
		return h.handleAddPenalty(ctx, c, env.Data)
	case protocol.MsgEliminate:
		return h.handleEliminate(ctx, c, env.Data)
	case protocol.MsgUpdateSettings:
		return h.handleUpdateSettings(ctx, c, env.Data)
	case protocol.MsgEndGame:
		return h.handleEndGame(ctx, c)
	case protocol.MsgRenameGame:
		return h.handleRenameGame(ctx, c, env.Data)
	case protocol.MsgInterrupt:
		return h.handleInterrupt(ctx, c)
	case protocol.MsgPassPriority:
		return h.handlePassPriority(ctx, c)
	case protocol.MsgRandomStartPlayer:
		return h.handleRandomStartPlayer(ctx, c)
	case protocol.MsgRollDice:
		return h.handleRollDice(ctx, c, env.Data)
	case protocol.MsgRollPlayOrder:
		return h.handleRollPlayOrder(ctx, c)
	case protocol.MsgAdminRevive:
		return h.handleAdminRevive(ctx, c, env.Data)
	case protocol.MsgAdminKick:
		return h.handleAdminKick(ctx, c, env.Data)
	case protocol.MsgAdminAddTime:
		return h.handleAdminAddTime(ctx, c, env.Data)
	case protocol.MsgTimeoutChoice:
		return h.handleTimeoutChoice(ctx, c, env.Data)
	case protocol.MsgToggleTarget:
		return h.handleToggleTarget(ctx, c, env.Data)
	case protocol.MsgConfirmTargets:
		return h.handleConfirmTargets(ctx, c)
	case protocol.MsgPassTargetPriority:
		return h.handlePassTargetPriority(ctx, c)
	case protocol.MsgCancelTargeting:
		return h.handleCancelTargeting(ctx, c)
	case protocol.MsgFeedback:
		return h.handleFeedback(ctx, c, env.Data)
	case protocol.MsgLoadFeedbacks:
		return h.handleLoadFeedbacks(ctx, c, env.Data)
	case protocol.MsgUpdateFeedback:
		return h.handleUpdateFeedback(ctx, c, env.Data)
	case protocol.MsgDeleteFeedback:
		return h.handleDeleteFeedback(ctx, c, env.Data)
	}
	return &game.Error{Kind: game.KindUnknownMessageType, Message: "Unknown message type"}
}
