package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/onatuner/tap-or-tarp-sub001/internal/feedback"
	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
	"github.com/onatuner/tap-or-tarp-sub001/internal/protocol"
	"github.com/onatuner/tap-or-tarp-sub001/internal/store"
	"github.com/onatuner/tap-or-tarp-sub001/internal/telemetry"
)

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return &game.Error{Kind: game.KindInvalidJSON, Message: "Invalid message format"}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &game.Error{Kind: game.KindInvalidJSON, Message: "Invalid message format"}
	}
	return nil
}

// currentGame returns the game the client is attached to.
func (c *Client) currentGame() (string, error) {
	id := c.GameID()
	if id == "" {
		return "", game.ErrGameNotFound
	}
	return id, nil
}

func (h *Hub) broadcastState(ctx context.Context, id string, st *game.State) {
	h.bus.Broadcast(ctx, id, protocol.EvState, st.Public())
}

// --- lifecycle ---

type createReq struct {
	Name     string        `json:"name,omitempty"`
	Mode     game.Mode     `json:"mode,omitempty"`
	Settings game.Settings `json:"settings"`
}

func (h *Hub) handleCreate(ctx context.Context, c *Client, data json.RawMessage) error {
	var req createReq
	if err := decode(data, &req); err != nil {
		return err
	}
	if err := req.Settings.Validate(); err != nil {
		return err
	}
	name := "New Game"
	if req.Name != "" {
		var err error
		if name, err = game.SanitizeName(req.Name); err != nil {
			return err
		}
	}

	// Creation is serialized so one instance never races itself on ids;
	// cross-instance uniqueness is the store's reservation marker.
	h.createMu.Lock()
	defer h.createMu.Unlock()

	var st *game.State
	for attempt := 0; attempt < createAttempts; attempt++ {
		id := game.GenerateID()
		ok, err := h.store.ReserveID(ctx, id, store.DefaultTTL)
		if err != nil {
			slog.Error("id reservation failed", "error", err)
			return game.ErrInternal
		}
		if !ok {
			continue
		}
		st = game.NewState(id, name, req.Mode, req.Settings)
		st.OwnerID = c.id
		if err := h.store.Create(ctx, id, st, store.DefaultTTL); err != nil {
			if errors.Is(err, store.ErrExists) {
				st = nil
				continue
			}
			slog.Error("game create failed", "game_id", id, "error", err)
			return game.ErrInternal
		}
		break
	}
	if st == nil {
		return game.ErrCreateFailed
	}

	if err := h.locks.WithLock(ctx, st.ID, func() error {
		h.materialize(st.ID, st)
		h.cache.Put(st.ID, st)
		return nil
	}); err != nil {
		return mapError(err)
	}

	h.leaveCurrentGame(c)
	c.setGame(st.ID)
	h.bus.Attach(c)
	h.metrics.GamesCreated.Add(1)
	telemetry.RecordGameCreated(ctx, st.ID, string(st.Mode), st.Settings.PlayerCount)
	slog.Info("game created", "game_id", st.ID, "owner", c.id, "players", st.Settings.PlayerCount)

	h.broadcastState(ctx, st.ID, st)
	return nil
}

type joinReq struct {
	GameID string `json:"gameId"`
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	var req joinReq
	if err := decode(data, &req); err != nil {
		return err
	}
	return h.join(ctx, c, req.GameID)
}

func (h *Hub) join(ctx context.Context, c *Client, rawID string) error {
	id := strings.ToUpper(strings.TrimSpace(rawID))
	if !game.ValidID(id) {
		return game.ErrGameNotFound
	}

	var st *game.State
	err := h.locks.WithLock(ctx, id, func() error {
		sess, err := h.ensureLoaded(ctx, id)
		if err != nil {
			return err
		}
		if sess.state.IsClosed {
			return game.ErrGameNotFound
		}
		st = sess.state
		return nil
	})
	if err != nil {
		return mapError(err)
	}

	h.leaveCurrentGame(c)
	c.setGame(id)
	h.bus.Attach(c)
	slog.Info("client joined", "client_id", c.id, "game_id", id)

	h.bus.Send(c, protocol.EvState, st.Public())
	if st.Status == game.StatusRunning {
		h.armTicker(id)
	}
	return nil
}

func (h *Hub) handleStart(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanStart(c.id) {
			if !st.HasClaim(c.id) && !st.IsOwner(c.id) {
				return game.MustClaim("start the game")
			}
			return game.NotAuthorized("start the game")
		}
		return st.Start()
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	h.armTicker(id)
	return nil
}

// handlePause toggles between running and paused.
func (h *Hub) handlePause(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanControl(c.id) {
			return game.MustClaim("pause the game")
		}
		switch st.Status {
		case game.StatusRunning:
			return st.Pause()
		case game.StatusPaused:
			return st.Resume()
		default:
			return game.ErrNotRunning
		}
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	if out.Status == game.StatusRunning {
		h.armTicker(id)
	} else {
		h.stopTicker(id)
	}
	return nil
}

func (h *Hub) handleReset(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.IsOwner(c.id) {
			return game.ErrOwnerOnlyReset
		}
		st.Reset()
		return nil
	})
	if err != nil {
		return err
	}
	h.stopTicker(id)
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handleEndGame(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.IsOwner(c.id) {
			return game.NotAuthorized("end the game")
		}
		return st.End()
	})
	if err != nil {
		return err
	}
	h.stopTicker(id)
	h.bus.Broadcast(ctx, id, protocol.EvGameEnded, struct {
		GameID string `json:"gameId"`
	}{id})
	h.broadcastState(ctx, id, out)
	return nil
}

type renameReq struct {
	Name string `json:"name"`
}

func (h *Hub) handleRenameGame(ctx context.Context, c *Client, data json.RawMessage) error {
	var req renameReq
	if err := decode(data, &req); err != nil {
		return err
	}
	name, err := game.SanitizeName(req.Name)
	if err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.IsOwner(c.id) {
			return game.NotAuthorized("rename the game")
		}
		st.Rename(name)
		return nil
	})
	if err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvGameRenamed, renameReq{Name: out.Name})
	h.broadcastState(ctx, id, out)
	return nil
}

type settingsReq struct {
	Settings game.Settings `json:"settings"`
}

func (h *Hub) handleUpdateSettings(ctx context.Context, c *Client, data json.RawMessage) error {
	var req settingsReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.IsOwner(c.id) {
			return game.NotAuthorized("change settings")
		}
		return st.UpdateSettings(req.Settings)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

// --- turns ---

type playerReq struct {
	PlayerID int `json:"playerId"`
}

func (h *Hub) handleSwitch(ctx context.Context, c *Client, data json.RawMessage) error {
	var req playerReq
	if len(data) > 0 {
		if err := decode(data, &req); err != nil {
			return err
		}
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanSwitch(c.id) {
			return game.NotAuthorized("switch turns")
		}
		if req.PlayerID == 0 {
			return st.PassTurn()
		}
		return st.SwitchPlayer(req.PlayerID)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

// --- claims ---

func (h *Hub) handleClaim(ctx context.Context, c *Client, data json.RawMessage) error {
	var req playerReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	var token string
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		var err error
		token, err = st.Claim(req.PlayerID, c.id)
		return err
	})
	if err != nil {
		return err
	}
	slog.Info("player claimed", "game_id", id, "player_id", req.PlayerID, "client_id", c.id)
	h.bus.Send(c, protocol.EvClaimed, struct {
		PlayerID int    `json:"playerId"`
		Token    string `json:"token"`
	}{req.PlayerID, token})
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handleUnclaim(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		st.Unclaim(c.id)
		return nil
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

type reconnectReq struct {
	GameID   string `json:"gameId"`
	PlayerID int    `json:"playerId"`
	Token    string `json:"token"`
}

func (h *Hub) handleReconnect(ctx context.Context, c *Client, data json.RawMessage) error {
	var req reconnectReq
	if err := decode(data, &req); err != nil {
		return err
	}
	if err := h.join(ctx, c, req.GameID); err != nil {
		return err
	}
	id := c.GameID()
	var fresh string
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		var err error
		fresh, err = st.Reconnect(req.PlayerID, req.Token, c.id)
		return err
	})
	if err != nil {
		return err
	}
	slog.Info("player reconnected", "game_id", id, "player_id", req.PlayerID, "client_id", c.id)
	h.bus.Send(c, protocol.EvReconnected, struct {
		PlayerID int    `json:"playerId"`
		Token    string `json:"token"`
	}{req.PlayerID, fresh})
	h.broadcastState(ctx, id, out)
	return nil
}

// --- players ---

type updatePlayerReq struct {
	PlayerID int `json:"playerId"`
	game.PlayerUpdate
}

func (h *Hub) handleUpdatePlayer(ctx context.Context, c *Client, data json.RawMessage) error {
	var req updatePlayerReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanMutatePlayer(c.id, req.PlayerID) {
			return game.NotAuthorized("update this player")
		}
		return st.UpdatePlayer(req.PlayerID, req.PlayerUpdate)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handleAddPenalty(ctx context.Context, c *Client, data json.RawMessage) error {
	var req playerReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanMutatePlayer(c.id, req.PlayerID) {
			return game.NotAuthorized("update this player")
		}
		return st.AddPenalty(req.PlayerID)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handleEliminate(ctx context.Context, c *Client, data json.RawMessage) error {
	var req playerReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanMutatePlayer(c.id, req.PlayerID) {
			return game.NotAuthorized("eliminate this player")
		}
		return st.Eliminate(req.PlayerID)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	if out.Status == game.StatusFinished {
		h.stopTicker(id)
	}
	return nil
}

// --- timeout resolution ---

type timeoutChoiceReq struct {
	PlayerID int                `json:"playerId"`
	Choice   game.TimeoutChoice `json:"choice"`
}

func (h *Hub) handleTimeoutChoice(ctx context.Context, c *Client, data json.RawMessage) error {
	var req timeoutChoiceReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanMutatePlayer(c.id, req.PlayerID) {
			return game.NotAuthorized("resolve this timeout")
		}
		return st.ResolveTimeout(req.PlayerID, req.Choice)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	if out.Status == game.StatusFinished {
		h.stopTicker(id)
	}
	return nil
}

// --- interrupts ---

func (h *Hub) handleInterrupt(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		pid := st.ClaimOf(c.id)
		if pid == 0 {
			return game.MustClaim("interrupt")
		}
		return st.Interrupt(pid)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handlePassPriority(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	var pid int
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		pid = st.ClaimOf(c.id)
		if pid == 0 {
			return game.MustClaim("pass priority")
		}
		return st.PassPriority(pid)
	})
	if err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvPriorityPassed, playerEvent{PlayerID: pid})
	h.broadcastState(ctx, id, out)
	return nil
}

// --- dice and randomness ---

func (h *Hub) handleRandomStartPlayer(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	var pid int
	_, err = h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanControl(c.id) {
			return game.MustClaim("select a random player")
		}
		var err error
		pid, err = st.RandomStartPlayer()
		return err
	})
	if err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvRandomPlayerSelected, playerEvent{PlayerID: pid})
	return nil
}

type rollDiceReq struct {
	Sides int `json:"sides"`
}

func (h *Hub) handleRollDice(ctx context.Context, c *Client, data json.RawMessage) error {
	var req rollDiceReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	result, err := game.RollDice(req.Sides)
	if err != nil {
		return err
	}
	var pid int
	if _, err := h.mutate(ctx, id, func(st *game.State) error {
		pid = st.ClaimOf(c.id)
		return nil
	}); err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvDiceRolled, struct {
		PlayerID int `json:"playerId,omitempty"`
		Sides    int `json:"sides"`
		Result   int `json:"result"`
	}{pid, req.Sides, result})
	return nil
}

func (h *Hub) handleRollPlayOrder(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	var order []int
	if _, err := h.mutate(ctx, id, func(st *game.State) error {
		order = st.RollPlayOrder()
		return nil
	}); err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvPlayOrderRolled, struct {
		Order []int `json:"order"`
	}{order})
	return nil
}

// --- admin ---

func (h *Hub) handleAdminRevive(ctx context.Context, c *Client, data json.RawMessage) error {
	var req playerReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanAdmin(c.id) {
			return game.MustClaim("perform admin actions")
		}
		return st.Revive(req.PlayerID)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handleAdminKick(ctx context.Context, c *Client, data json.RawMessage) error {
	var req playerReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanAdmin(c.id) {
			return game.MustClaim("perform admin actions")
		}
		return st.Kick(req.PlayerID)
	})
	if err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvKicked, playerEvent{PlayerID: req.PlayerID})
	h.broadcastState(ctx, id, out)
	return nil
}

type addTimeReq struct {
	PlayerID int `json:"playerId"`
	Minutes  int `json:"minutes"`
}

func (h *Hub) handleAdminAddTime(ctx context.Context, c *Client, data json.RawMessage) error {
	var req addTimeReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		if !st.CanAdmin(c.id) {
			return game.MustClaim("perform admin actions")
		}
		return st.AddTime(req.PlayerID, int64(req.Minutes)*60*1000)
	})
	if err != nil {
		return err
	}
	h.broadcastState(ctx, id, out)
	return nil
}

// --- targeting ---

func (h *Hub) handleToggleTarget(ctx context.Context, c *Client, data json.RawMessage) error {
	var req playerReq
	if err := decode(data, &req); err != nil {
		return err
	}
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		pid := st.ClaimOf(c.id)
		if pid == 0 {
			return game.MustClaim("target players")
		}
		return st.ToggleTarget(pid, req.PlayerID)
	})
	if err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvTargetingUpdated, struct {
		PlayerID        int   `json:"playerId"`
		TargetedPlayers []int `json:"targetedPlayers"`
	}{out.ActivePlayer, out.TargetedPlayers})
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handleConfirmTargets(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		pid := st.ClaimOf(c.id)
		if pid == 0 {
			return game.MustClaim("confirm targets")
		}
		return st.ConfirmTargets(pid)
	})
	if err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvTargetingStarted, struct {
		TargetedPlayers  []int `json:"targetedPlayers"`
		AwaitingPriority []int `json:"awaitingPriority"`
		ActivePlayer     int   `json:"activePlayer"`
	}{out.TargetedPlayers, out.AwaitingPriority, out.ActivePlayer})
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handlePassTargetPriority(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	var pid int
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		pid = st.ClaimOf(c.id)
		if pid == 0 {
			return game.MustClaim("pass priority")
		}
		return st.PassTargetPriority(pid)
	})
	if err != nil {
		return err
	}
	if out.Targeting == game.TargetingNone {
		h.bus.Broadcast(ctx, id, protocol.EvTargetingComplete, struct {
			ActivePlayer int `json:"activePlayer"`
		}{out.ActivePlayer})
	} else {
		h.bus.Broadcast(ctx, id, protocol.EvPriorityPassed, struct {
			PlayerID         int   `json:"playerId"`
			AwaitingPriority []int `json:"awaitingPriority"`
			ActivePlayer     int   `json:"activePlayer"`
		}{pid, out.AwaitingPriority, out.ActivePlayer})
	}
	h.broadcastState(ctx, id, out)
	return nil
}

func (h *Hub) handleCancelTargeting(ctx context.Context, c *Client) error {
	id, err := c.currentGame()
	if err != nil {
		return err
	}
	out, err := h.mutate(ctx, id, func(st *game.State) error {
		pid := st.ClaimOf(c.id)
		if pid == 0 {
			return game.MustClaim("cancel targeting")
		}
		return st.CancelTargeting(pid)
	})
	if err != nil {
		return err
	}
	h.bus.Broadcast(ctx, id, protocol.EvTargetingCanceled, nil)
	h.broadcastState(ctx, id, out)
	return nil
}

// --- feedback ---

type feedbackReq struct {
	Author  string `json:"author,omitempty"`
	Message string `json:"message"`
}

func (h *Hub) handleFeedback(ctx context.Context, c *Client, data json.RawMessage) error {
	var req feedbackReq
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.Message == "" || len(req.Message) > feedback.MaxMessageLength {
		return game.ErrInvalidSettings
	}
	e := feedback.NewEntry(c.GameID(), req.Author, req.Message)
	if err := h.feedback.Save(e); err != nil {
		slog.Error("feedback save failed", "error", err)
		return game.ErrInternal
	}
	h.bus.Send(c, protocol.EvFeedbackSubmitted, e)
	return nil
}

type loadFeedbacksReq struct {
	Limit int `json:"limit,omitempty"`
}

func (h *Hub) handleLoadFeedbacks(_ context.Context, c *Client, data json.RawMessage) error {
	var req loadFeedbacksReq
	if len(data) > 0 {
		if err := decode(data, &req); err != nil {
			return err
		}
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	list, err := h.feedback.List(req.Limit)
	if err != nil {
		slog.Error("feedback list failed", "error", err)
		return game.ErrInternal
	}
	h.bus.Send(c, protocol.EvFeedbackList, struct {
		Feedbacks []feedback.Entry `json:"feedbacks"`
	}{list})
	return nil
}

type updateFeedbackReq struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h *Hub) handleUpdateFeedback(_ context.Context, c *Client, data json.RawMessage) error {
	var req updateFeedbackReq
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.Message == "" || len(req.Message) > feedback.MaxMessageLength {
		return game.ErrInvalidSettings
	}
	e, err := h.feedback.Update(req.ID, req.Message)
	if err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			return &game.Error{Kind: game.KindInvalidTarget, Message: "Feedback not found"}
		}
		slog.Error("feedback update failed", "error", err)
		return game.ErrInternal
	}
	h.bus.Send(c, protocol.EvFeedbackUpdated, e)
	return nil
}

type deleteFeedbackReq struct {
	ID string `json:"id"`
}

func (h *Hub) handleDeleteFeedback(_ context.Context, c *Client, data json.RawMessage) error {
	var req deleteFeedbackReq
	if err := decode(data, &req); err != nil {
		return err
	}
	if err := h.feedback.Delete(req.ID); err != nil {
		if errors.Is(err, feedback.ErrNotFound) {
			return &game.Error{Kind: game.KindInvalidTarget, Message: "Feedback not found"}
		}
		slog.Error("feedback delete failed", "error", err)
		return game.ErrInternal
	}
	h.bus.Send(c, protocol.EvFeedbackDeleted, deleteFeedbackReq{ID: req.ID})
	return nil
}
