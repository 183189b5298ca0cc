package game

// The targeting/priority sub-machine: none -> selecting -> resolving -> none.
// While resolving, each targeted player is offered priority in selection
// order before the turn returns to the original active player.

// ToggleTarget adds or removes a target during selection. Only the active
// player may target; the first toggle enters the selecting phase and pins
// the sender's own seat into the target set.
func (s *State) ToggleTarget(callerPID, targetPID int) error {
	if s.Status != StatusRunning {
		return ErrNotRunning
	}
	if callerPID != s.ActivePlayer {
		return NotAuthorized("change targets")
	}
	switch s.Targeting {
	case TargetingNone:
		s.Targeting = TargetingSelecting
		s.TargetedPlayers = []int{callerPID}
	case TargetingSelecting:
		// stay in selection
	default:
		return ErrTargetsLocked
	}
	t := s.Player(targetPID)
	if t == nil || t.IsEliminated {
		return &Error{KindInvalidTarget, "Invalid player ID"}
	}
	if targetPID == callerPID {
		// The sender's own seat stays in the set for the whole selection.
		return nil
	}
	if containsID(s.TargetedPlayers, targetPID) {
		s.TargetedPlayers = removeID(s.TargetedPlayers, targetPID)
		if len(s.TargetedPlayers) == 1 {
			// Only the sender's own seat left; selection continues.
			return nil
		}
	} else {
		s.TargetedPlayers = append(s.TargetedPlayers, targetPID)
	}
	return nil
}

// ConfirmTargets freezes the target set and starts the priority round.
// Requires at least one target besides the sender; the targeted players are
// queued in selection order and the head becomes active.
func (s *State) ConfirmTargets(callerPID int) error {
	if s.Targeting != TargetingSelecting {
		return ErrTargetsLocked
	}
	if callerPID != s.ActivePlayer {
		return NotAuthorized("confirm targets")
	}
	queue := make([]int, 0, len(s.TargetedPlayers))
	for _, id := range s.TargetedPlayers {
		if id != callerPID {
			queue = append(queue, id)
		}
	}
	if len(queue) == 0 {
		return ErrNoTargets
	}
	s.Targeting = TargetingResolving
	s.OriginalActivePlayer = s.ActivePlayer
	s.AwaitingPriority = queue
	s.ActivePlayer = queue[0]
	return nil
}

// PassTargetPriority lets the current priority holder decline to act. When
// the queue drains the turn returns to the original active player.
func (s *State) PassTargetPriority(callerPID int) error {
	if s.Targeting != TargetingResolving {
		return ErrTargetsLocked
	}
	if len(s.AwaitingPriority) == 0 || s.AwaitingPriority[0] != callerPID || callerPID != s.ActivePlayer {
		return NotAuthorized("pass priority")
	}
	s.AwaitingPriority = s.AwaitingPriority[1:]
	if len(s.AwaitingPriority) == 0 {
		s.finishTargeting()
		return nil
	}
	s.ActivePlayer = s.AwaitingPriority[0]
	return nil
}

// CancelTargeting abandons the sub-machine: the active player may cancel
// during selection, the original active player during resolution.
func (s *State) CancelTargeting(callerPID int) error {
	switch s.Targeting {
	case TargetingSelecting:
		if callerPID != s.ActivePlayer {
			return NotAuthorized("cancel targeting")
		}
	case TargetingResolving:
		if callerPID != s.OriginalActivePlayer {
			return NotAuthorized("cancel targeting")
		}
		s.finishTargeting()
		return nil
	default:
		return ErrTargetsLocked
	}
	s.clearTargeting()
	return nil
}

// Interrupt queues a player for out-of-turn action.
func (s *State) Interrupt(playerID int) error {
	if s.Status != StatusRunning {
		return ErrNotRunning
	}
	p := s.Player(playerID)
	if p == nil || p.IsEliminated {
		return ErrInvalidPlayerID
	}
	if containsID(s.InterruptingPlayers, playerID) {
		return nil
	}
	s.InterruptingPlayers = append(s.InterruptingPlayers, playerID)
	return nil
}

// PassPriority removes the head of the interrupt queue.
func (s *State) PassPriority(playerID int) error {
	if len(s.InterruptingPlayers) == 0 || s.InterruptingPlayers[0] != playerID {
		return NotAuthorized("pass priority")
	}
	s.InterruptingPlayers = s.InterruptingPlayers[1:]
	if len(s.InterruptingPlayers) == 0 {
		s.InterruptingPlayers = nil
	}
	return nil
}

// finishTargeting restores the turn after the priority round completes.
// The original active player may have been eliminated mid-round; the turn
// then moves to the next live seat instead.
func (s *State) finishTargeting() {
	orig := s.OriginalActivePlayer
	s.clearTargeting()
	if p := s.Player(orig); p != nil && !p.IsEliminated {
		s.ActivePlayer = orig
		return
	}
	s.ActivePlayer = s.FindNextActive(orig)
	if s.ActivePlayer == 0 && s.Status == StatusRunning {
		s.Status = StatusFinished
	}
}

func (s *State) clearTargeting() {
	s.Targeting = TargetingNone
	s.TargetedPlayers = nil
	s.AwaitingPriority = nil
	s.OriginalActivePlayer = 0
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
