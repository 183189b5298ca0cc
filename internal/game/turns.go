package game

// Start moves the game from waiting to running and seats the first
// non-eliminated player as active. Authorization is checked by the caller
// via CanStart.
func (s *State) Start() error {
	if s.Status != StatusWaiting {
		return &Error{KindWrongState, "Game already started"}
	}
	first := s.FindNextActive(0)
	if first == 0 {
		return ErrInvalidPlayerID
	}
	s.Status = StatusRunning
	s.ActivePlayer = first
	return nil
}

// Pause suspends the running timer.
func (s *State) Pause() error {
	if s.Status != StatusRunning {
		return ErrNotRunning
	}
	s.Status = StatusPaused
	return nil
}

// Resume continues a paused game.
func (s *State) Resume() error {
	if s.Status != StatusPaused {
		return &Error{KindWrongState, "Game is not paused"}
	}
	s.Status = StatusRunning
	return nil
}

// Reset restores every timer to the configured initial time, clears
// targeting and interrupts, and returns to waiting. Owner only; the caller
// enforces that.
func (s *State) Reset() {
	s.Status = StatusWaiting
	s.ActivePlayer = 0
	s.clearTargeting()
	s.InterruptingPlayers = nil
	for _, p := range s.Players {
		p.TimeRemaining = s.Settings.InitialTime
		p.TimeoutPending = false
	}
}

// End finishes the game. Owner only; enforced by the caller.
func (s *State) End() error {
	if s.Status == StatusFinished {
		return &Error{KindWrongState, "Game already finished"}
	}
	s.Status = StatusFinished
	s.ActivePlayer = 0
	s.clearTargeting()
	s.InterruptingPlayers = nil
	return nil
}

// Rename sets the game name. The name must already be sanitized.
func (s *State) Rename(name string) {
	s.Name = name
}

// FindNextActive walks the seats circularly starting after the given
// player id, skipping eliminated players. Returns 0 when nobody is left.
func (s *State) FindNextActive(after int) int {
	n := len(s.Players)
	if n == 0 {
		return 0
	}
	start := after // 0 means "before the first seat"
	for i := 1; i <= n; i++ {
		id := (start+i-1)%n + 1
		if p := s.Player(id); p != nil && !p.IsEliminated {
			if id == after && i == n {
				// Everyone else is eliminated.
				return 0
			}
			return id
		}
	}
	return 0
}

// SwitchPlayer hands the turn to the given player. Rejected while targeting
// or priority is in flight.
func (s *State) SwitchPlayer(next int) error {
	if s.Status != StatusRunning {
		return ErrNotRunning
	}
	if s.Targeting != TargetingNone || len(s.InterruptingPlayers) > 0 {
		return &Error{KindWrongState, "Cannot switch during targeting"}
	}
	p := s.Player(next)
	if p == nil || p.IsEliminated {
		return ErrInvalidPlayerID
	}
	s.ActivePlayer = next
	return nil
}

// PassTurn advances to the next non-eliminated player.
func (s *State) PassTurn() error {
	next := s.FindNextActive(s.ActivePlayer)
	if next == 0 {
		return ErrInvalidPlayerID
	}
	return s.SwitchPlayer(next)
}

// Eliminate marks a player out of the game. If they held the turn, the turn
// advances; if they sat in a priority queue, they are dropped from it.
func (s *State) Eliminate(playerID int) error {
	p := s.Player(playerID)
	if p == nil {
		return ErrInvalidPlayerID
	}
	if p.IsEliminated {
		return nil
	}
	p.IsEliminated = true
	p.TimeoutPending = false
	heldPriority := s.Targeting == TargetingResolving && s.ActivePlayer == playerID
	s.AwaitingPriority = removeID(s.AwaitingPriority, playerID)
	s.TargetedPlayers = removeID(s.TargetedPlayers, playerID)
	s.InterruptingPlayers = removeID(s.InterruptingPlayers, playerID)
	if s.Targeting == TargetingResolving {
		if len(s.AwaitingPriority) == 0 {
			s.finishTargeting()
		} else if heldPriority {
			s.ActivePlayer = s.AwaitingPriority[0]
		}
	}
	if s.ActivePlayer == playerID {
		s.ActivePlayer = s.FindNextActive(playerID)
		if s.ActivePlayer == 0 && s.Status == StatusRunning {
			s.Status = StatusFinished
		}
	}
	return nil
}

// Revive brings an eliminated player back.
func (s *State) Revive(playerID int) error {
	p := s.Player(playerID)
	if p == nil {
		return ErrInvalidPlayerID
	}
	p.IsEliminated = false
	if s.ActivePlayer == 0 && s.Status == StatusRunning {
		s.ActivePlayer = playerID
	}
	return nil
}

// AddTime credits extra time to a player. Bounds per the wire contract:
// 1 to 60 minutes.
func (s *State) AddTime(playerID int, ms int64) error {
	if ms < MinTimeAdjustment || ms > MaxTimeAdjustment {
		return ErrInvalidSettings
	}
	p := s.Player(playerID)
	if p == nil {
		return ErrInvalidPlayerID
	}
	p.TimeRemaining += ms
	if p.TimeoutPending && p.TimeRemaining > 0 {
		p.TimeoutPending = false
	}
	return nil
}

// PlayerUpdate carries optional field changes for updatePlayer.
type PlayerUpdate struct {
	Name    *string `json:"name,omitempty"`
	Color   *string `json:"color,omitempty"`
	Life    *int    `json:"life,omitempty"`
	Drunk   *int    `json:"drunkCounter,omitempty"`
	Generic *int    `json:"genericCounter,omitempty"`
}

// UpdatePlayer applies a partial update to a player's mutable fields.
func (s *State) UpdatePlayer(playerID int, upd PlayerUpdate) error {
	p := s.Player(playerID)
	if p == nil {
		return ErrInvalidPlayerID
	}
	if upd.Name != nil {
		name, err := SanitizeName(*upd.Name)
		if err != nil {
			return err
		}
		p.Name = name
	}
	if upd.Color != nil {
		p.Color = *upd.Color
	}
	if upd.Life != nil {
		if *upd.Life < MinLife || *upd.Life > MaxLife {
			return ErrInvalidSettings
		}
		p.Life = *upd.Life
	}
	if upd.Drunk != nil {
		if *upd.Drunk < 0 || *upd.Drunk > MaxCounter {
			return ErrInvalidSettings
		}
		p.DrunkCounter = *upd.Drunk
	}
	if upd.Generic != nil {
		if *upd.Generic < 0 || *upd.Generic > MaxCounter {
			return ErrInvalidSettings
		}
		p.GenericCounter = *upd.Generic
	}
	return nil
}

// AddPenalty bumps a player's drunk counter by one.
func (s *State) AddPenalty(playerID int) error {
	p := s.Player(playerID)
	if p == nil {
		return ErrInvalidPlayerID
	}
	if p.DrunkCounter < MaxCounter {
		p.DrunkCounter++
	}
	return nil
}

// Kick releases a player's claim and wipes their reconnect token.
func (s *State) Kick(playerID int) error {
	p := s.Player(playerID)
	if p == nil {
		return ErrInvalidPlayerID
	}
	p.ClaimedBy = ""
	p.ReconnectToken = ""
	p.TokenExpiry = 0
	return nil
}

// UpdateSettings replaces the game settings. Only allowed while waiting and
// only for fields that keep invariant 1 (player count is fixed for the
// game's life once seats exist).
func (s *State) UpdateSettings(set Settings) error {
	if s.Status != StatusWaiting {
		return &Error{KindWrongState, "Cannot change settings after start"}
	}
	if err := set.Validate(); err != nil {
		return err
	}
	if set.PlayerCount != s.Settings.PlayerCount {
		return ErrInvalidSettings
	}
	s.Settings = set
	for _, p := range s.Players {
		p.TimeRemaining = set.InitialTime
	}
	return nil
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
