package game

// TimeoutChoice is one of the closed set of resolutions a player may pick
// after their timer hits zero.
type TimeoutChoice string

const (
	TimeoutLoseLife  TimeoutChoice = "loseLife"
	TimeoutGainDrunk TimeoutChoice = "gainDrunk"
	TimeoutDie       TimeoutChoice = "die"
)

// ValidTimeoutChoice reports whether the choice is in the closed set.
func ValidTimeoutChoice(c TimeoutChoice) bool {
	switch c {
	case TimeoutLoseLife, TimeoutGainDrunk, TimeoutDie:
		return true
	}
	return false
}

// MarkTimeout flags a player whose timer reached zero. Returns false when
// the flag was already pending, so the timeout event fires exactly once.
func (s *State) MarkTimeout(playerID int) bool {
	p := s.Player(playerID)
	if p == nil || p.TimeoutPending {
		return false
	}
	if p.TimeRemaining < 0 {
		p.TimeRemaining = 0
	}
	p.TimeoutPending = true
	return true
}

// ResolveTimeout applies the chosen effect, clears the pending flag, and
// advances the turn. Non-lethal resolutions refill the player's timer so
// the countdown can restart.
func (s *State) ResolveTimeout(playerID int, choice TimeoutChoice) error {
	p := s.Player(playerID)
	if p == nil {
		return ErrInvalidPlayerID
	}
	if !p.TimeoutPending {
		return &Error{KindWrongState, "No timeout pending"}
	}
	if !ValidTimeoutChoice(choice) {
		return ErrInvalidSettings
	}
	p.TimeoutPending = false
	switch choice {
	case TimeoutLoseLife:
		if p.Life > MinLife {
			p.Life--
		}
		p.TimeRemaining = s.Settings.InitialTime
	case TimeoutGainDrunk:
		if p.DrunkCounter < MaxCounter {
			p.DrunkCounter++
		}
		p.TimeRemaining = s.Settings.InitialTime
	case TimeoutDie:
		p.TimeRemaining = s.Settings.InitialTime
		return s.Eliminate(playerID)
	}
	if s.ActivePlayer == playerID && s.Targeting == TargetingNone {
		if next := s.FindNextActive(playerID); next != 0 {
			s.ActivePlayer = next
		}
	}
	return nil
}
