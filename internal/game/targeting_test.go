package game

import "testing"

func TestToggleTarget_SeedsOwnSeat(t *testing.T) {
	st := runningGame(t, 4)

	if err := st.ToggleTarget(1, 2); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if st.Targeting != TargetingSelecting {
		t.Errorf("expected selecting, got %s", st.Targeting)
	}
	want := []int{1, 2}
	if !equalInts(st.TargetedPlayers, want) {
		t.Errorf("expected targets %v, got %v", want, st.TargetedPlayers)
	}
}

func TestToggleTarget_OnlyActivePlayer(t *testing.T) {
	st := runningGame(t, 4)
	if err := st.ToggleTarget(2, 3); err == nil {
		t.Error("expected error for non-active toggler")
	}
}

func TestToggleTarget_ToggleRemoves(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 2)
	mustToggle(t, st, 1, 3)
	mustToggle(t, st, 1, 2) // remove 2 again

	want := []int{1, 3}
	if !equalInts(st.TargetedPlayers, want) {
		t.Errorf("expected targets %v, got %v", want, st.TargetedPlayers)
	}
}

func TestToggleTarget_OwnSeatIsPinned(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 1)
	mustToggle(t, st, 1, 1)
	// Toggling the own seat never removes it and never leaves selection.
	if st.Targeting != TargetingSelecting {
		t.Errorf("expected selecting, got %s", st.Targeting)
	}
	if !equalInts(st.TargetedPlayers, []int{1}) {
		t.Errorf("expected own seat pinned, got %v", st.TargetedPlayers)
	}
}

func TestToggleTarget_RemovingLastTargetStaysSelecting(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 2)
	mustToggle(t, st, 1, 2)
	if st.Targeting != TargetingSelecting {
		t.Errorf("expected selection to continue, got %s", st.Targeting)
	}
	if !equalInts(st.TargetedPlayers, []int{1}) {
		t.Errorf("expected only own seat, got %v", st.TargetedPlayers)
	}
}

func TestConfirmTargets(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 2)
	mustToggle(t, st, 1, 3)

	if err := st.ConfirmTargets(1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if st.Targeting != TargetingResolving {
		t.Errorf("expected resolving, got %s", st.Targeting)
	}
	// The confirming player is excluded from the priority queue.
	if !equalInts(st.AwaitingPriority, []int{2, 3}) {
		t.Errorf("expected queue [2 3], got %v", st.AwaitingPriority)
	}
	if st.OriginalActivePlayer != 1 {
		t.Errorf("expected original active 1, got %d", st.OriginalActivePlayer)
	}
	if st.ActivePlayer != 2 {
		t.Errorf("expected queue head active, got %d", st.ActivePlayer)
	}
}

func TestConfirmTargets_RequiresTargets(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 1) // only the own seat
	if err := st.ConfirmTargets(1); err == nil {
		t.Error("expected error confirming with no other targets")
	}
}

func TestPassTargetPriority_RestoresOriginal(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 2)
	mustToggle(t, st, 1, 3)
	if err := st.ConfirmTargets(1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Out of order is rejected.
	if err := st.PassTargetPriority(3); err == nil {
		t.Error("expected error for out-of-order pass")
	}
	if err := st.PassTargetPriority(2); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if st.ActivePlayer != 3 {
		t.Errorf("expected 3 to hold priority, got %d", st.ActivePlayer)
	}
	if err := st.PassTargetPriority(3); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	// Queue drained: turn returns to the original active player.
	if st.Targeting != TargetingNone {
		t.Errorf("expected targeting done, got %s", st.Targeting)
	}
	if st.ActivePlayer != 1 {
		t.Errorf("expected turn back with 1, got %d", st.ActivePlayer)
	}
	if st.TargetedPlayers != nil || st.AwaitingPriority != nil {
		t.Error("targeting slices not cleared")
	}
}

func TestCancelTargeting(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 2)

	if err := st.CancelTargeting(2); err == nil {
		t.Error("expected error for non-active cancel during selection")
	}
	if err := st.CancelTargeting(1); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if st.Targeting != TargetingNone {
		t.Errorf("expected targeting cleared, got %s", st.Targeting)
	}
}

func TestCancelTargeting_DuringResolution(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 2)
	if err := st.ConfirmTargets(1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Only the original active player may cancel resolution.
	if err := st.CancelTargeting(2); err == nil {
		t.Error("expected error for priority holder cancel")
	}
	if err := st.CancelTargeting(1); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if st.ActivePlayer != 1 {
		t.Errorf("expected turn restored to 1, got %d", st.ActivePlayer)
	}
}

func TestEliminate_PriorityHolderPromotesNext(t *testing.T) {
	st := runningGame(t, 4)
	mustToggle(t, st, 1, 2)
	mustToggle(t, st, 1, 3)
	if err := st.ConfirmTargets(1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Player 2 holds priority; eliminating them hands it to 3.
	if err := st.Eliminate(2); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	if st.Targeting != TargetingResolving {
		t.Errorf("expected resolution to continue, got %s", st.Targeting)
	}
	if st.ActivePlayer != 3 {
		t.Errorf("expected 3 to hold priority, got %d", st.ActivePlayer)
	}

	// Eliminating the last queued player finishes the round.
	if err := st.Eliminate(3); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	if st.Targeting != TargetingNone {
		t.Errorf("expected targeting done, got %s", st.Targeting)
	}
	if st.ActivePlayer != 1 {
		t.Errorf("expected turn back with 1, got %d", st.ActivePlayer)
	}
}

func TestEliminate_OriginalActiveDuringResolution(t *testing.T) {
	st := runningGame(t, 3)
	mustToggle(t, st, 1, 2)
	mustToggle(t, st, 1, 3)
	if err := st.ConfirmTargets(1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// The original active player drops out while the round resolves.
	if err := st.Eliminate(1); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	if err := st.PassTargetPriority(2); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if err := st.PassTargetPriority(3); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if st.Targeting != TargetingNone {
		t.Errorf("expected targeting done, got %s", st.Targeting)
	}
	// The turn may not return to an eliminated seat.
	if st.ActivePlayer != 2 {
		t.Errorf("expected next live seat 2, got %d", st.ActivePlayer)
	}
	if p := st.Player(st.ActivePlayer); p == nil || p.IsEliminated {
		t.Error("turn restored to an eliminated player")
	}
}

func TestCancelTargeting_OriginalEliminated(t *testing.T) {
	st := runningGame(t, 3)
	mustToggle(t, st, 1, 2)
	if err := st.ConfirmTargets(1); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := st.Eliminate(1); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	if err := st.CancelTargeting(1); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if p := st.Player(st.ActivePlayer); p == nil || p.IsEliminated {
		t.Error("turn restored to an eliminated player")
	}
}

func TestInterruptQueue(t *testing.T) {
	st := runningGame(t, 4)

	if err := st.Interrupt(2); err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}
	if err := st.Interrupt(2); err != nil {
		t.Errorf("duplicate interrupt errored: %v", err)
	}
	if err := st.Interrupt(3); err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}
	if !equalInts(st.InterruptingPlayers, []int{2, 3}) {
		t.Errorf("expected queue [2 3], got %v", st.InterruptingPlayers)
	}

	if err := st.PassPriority(3); err == nil {
		t.Error("expected error for out-of-order pass")
	}
	if err := st.PassPriority(2); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if err := st.PassPriority(3); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if st.InterruptingPlayers != nil {
		t.Errorf("queue not drained: %v", st.InterruptingPlayers)
	}
}

func mustToggle(t *testing.T, st *State, caller, target int) {
	t.Helper()
	if err := st.ToggleTarget(caller, target); err != nil {
		t.Fatalf("toggle %d->%d failed: %v", caller, target, err)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
