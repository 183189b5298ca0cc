package game

// IsOwner reports whether the controller is the game owner.
func (s *State) IsOwner(controllerID string) bool {
	return controllerID != "" && s.OwnerID == controllerID
}

// ClaimOf returns the player id claimed by the controller, or 0.
func (s *State) ClaimOf(controllerID string) int {
	if controllerID == "" {
		return 0
	}
	for _, p := range s.Players {
		if p.ClaimedBy == controllerID {
			return p.ID
		}
	}
	return 0
}

// HasClaim reports whether the controller holds any claim.
func (s *State) HasClaim(controllerID string) bool {
	return s.ClaimOf(controllerID) != 0
}

// CanStart reports whether the controller may start the game: the owner
// always, any claimed controller when the game allows it.
func (s *State) CanStart(controllerID string) bool {
	if s.IsOwner(controllerID) {
		return true
	}
	return s.Settings.AnyoneCanStart && s.HasClaim(controllerID)
}

// CanControl covers pause/resume: owner or any claimed controller.
func (s *State) CanControl(controllerID string) bool {
	return s.IsOwner(controllerID) || s.HasClaim(controllerID)
}

// CanSwitch reports whether the controller may pass the turn: the active
// player's controller, the owner, or an unclaimed controller when the game
// is configured to allow open switching.
func (s *State) CanSwitch(controllerID string) bool {
	if s.IsOwner(controllerID) {
		return true
	}
	if active := s.Player(s.ActivePlayer); active != nil && active.ClaimedBy == controllerID && controllerID != "" {
		return true
	}
	return s.Settings.AllowUnclaimedSwitch && !s.HasClaim(controllerID)
}

// CanMutatePlayer reports whether the controller may change a player's
// counters or name: the slot's controller, the owner, or anyone while the
// slot is unclaimed and the game has not started.
func (s *State) CanMutatePlayer(controllerID string, playerID int) bool {
	p := s.Player(playerID)
	if p == nil {
		return false
	}
	if s.IsOwner(controllerID) {
		return true
	}
	if p.ClaimedBy != "" {
		return p.ClaimedBy == controllerID
	}
	return s.Status == StatusWaiting
}

// CanAdmin covers the pseudo-admin operations (revive, kick, addTime):
// holding any claim is enough.
func (s *State) CanAdmin(controllerID string) bool {
	return s.IsOwner(controllerID) || s.HasClaim(controllerID)
}
