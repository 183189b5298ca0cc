package game

// Claim asserts exclusive control over a player slot. Succeeds when the
// slot is unclaimed or already held by the same controller; a controller
// holds at most one slot, so any previous claim is released. Returns the
// fresh reconnect token, which goes to the claimer only.
func (s *State) Claim(playerID int, controllerID string) (string, error) {
	if controllerID == "" {
		return "", ErrInvalidToken
	}
	p := s.Player(playerID)
	if p == nil {
		return "", ErrInvalidPlayerID
	}
	if p.ClaimedBy != "" && p.ClaimedBy != controllerID {
		return "", ErrAlreadyClaimed
	}
	// One claim per controller: release any other slot they hold.
	for _, q := range s.Players {
		if q.ID != playerID && q.ClaimedBy == controllerID {
			q.ClaimedBy = ""
			q.ReconnectToken = ""
			q.TokenExpiry = 0
		}
	}
	token := MintToken()
	p.ClaimedBy = controllerID
	p.ReconnectToken = token
	p.TokenExpiry = NowMillis() + TokenTTLMillis
	if s.OwnerID == "" {
		s.OwnerID = controllerID
	}
	return token, nil
}

// Unclaim releases every slot held by the controller and destroys the
// associated reconnect tokens.
func (s *State) Unclaim(controllerID string) []int {
	if controllerID == "" {
		return nil
	}
	var released []int
	for _, p := range s.Players {
		if p.ClaimedBy == controllerID {
			p.ClaimedBy = ""
			p.ReconnectToken = ""
			p.TokenExpiry = 0
			released = append(released, p.ID)
		}
	}
	return released
}

// Reconnect lets a new controller take over a slot by presenting the slot's
// reconnect token. Tokens rotate on every successful reconnect.
func (s *State) Reconnect(playerID int, token, newControllerID string) (string, error) {
	p := s.Player(playerID)
	if p == nil {
		return "", ErrInvalidPlayerID
	}
	if !VerifyToken(p.ReconnectToken, p.TokenExpiry, token) {
		return "", ErrInvalidToken
	}
	// ownerId is never reassigned once set; only the claim moves.
	fresh := MintToken()
	p.ClaimedBy = newControllerID
	p.ReconnectToken = fresh
	p.TokenExpiry = NowMillis() + TokenTTLMillis
	return fresh, nil
}
