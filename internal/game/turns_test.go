package game

import "testing"

func runningGame(t *testing.T, players int) *State {
	t.Helper()
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(players))
	if err := st.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return st
}

func TestStart(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(3))
	if err := st.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if st.Status != StatusRunning {
		t.Errorf("expected running, got %s", st.Status)
	}
	if st.ActivePlayer != 1 {
		t.Errorf("expected player 1 active, got %d", st.ActivePlayer)
	}
	if err := st.Start(); err == nil {
		t.Error("expected error starting twice")
	}
}

func TestStart_SkipsEliminated(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(3))
	st.Players[0].IsEliminated = true
	if err := st.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if st.ActivePlayer != 2 {
		t.Errorf("expected player 2 active, got %d", st.ActivePlayer)
	}
}

func TestPauseResume(t *testing.T) {
	st := runningGame(t, 2)
	if err := st.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if st.Status != StatusPaused {
		t.Errorf("expected paused, got %s", st.Status)
	}
	if err := st.Pause(); err == nil {
		t.Error("expected error pausing a paused game")
	}
	if err := st.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if st.Status != StatusRunning {
		t.Errorf("expected running, got %s", st.Status)
	}
}

func TestReset(t *testing.T) {
	st := runningGame(t, 3)
	st.Players[0].TimeRemaining = 5
	st.Players[1].TimeoutPending = true
	st.Targeting = TargetingSelecting
	st.TargetedPlayers = []int{1, 2}
	st.InterruptingPlayers = []int{3}

	st.Reset()

	if st.Status != StatusWaiting {
		t.Errorf("expected waiting, got %s", st.Status)
	}
	if st.ActivePlayer != 0 {
		t.Errorf("expected no active player, got %d", st.ActivePlayer)
	}
	if st.Targeting != TargetingNone || st.TargetedPlayers != nil || st.InterruptingPlayers != nil {
		t.Error("targeting state survived reset")
	}
	for _, p := range st.Players {
		if p.TimeRemaining != st.Settings.InitialTime {
			t.Errorf("player %d timer not refilled", p.ID)
		}
		if p.TimeoutPending {
			t.Errorf("player %d still pending", p.ID)
		}
	}
}

func TestFindNextActive(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(4))

	if got := st.FindNextActive(1); got != 2 {
		t.Errorf("after 1: expected 2, got %d", got)
	}
	if got := st.FindNextActive(4); got != 1 {
		t.Errorf("after 4: expected wrap to 1, got %d", got)
	}

	st.Players[1].IsEliminated = true
	if got := st.FindNextActive(1); got != 3 {
		t.Errorf("after 1 with 2 out: expected 3, got %d", got)
	}

	for _, p := range st.Players {
		if p.ID != 1 {
			p.IsEliminated = true
		}
	}
	if got := st.FindNextActive(1); got != 0 {
		t.Errorf("last survivor: expected 0, got %d", got)
	}

	for _, p := range st.Players {
		p.IsEliminated = true
	}
	if got := st.FindNextActive(0); got != 0 {
		t.Errorf("all eliminated: expected 0, got %d", got)
	}
}

func TestSwitchPlayer(t *testing.T) {
	st := runningGame(t, 3)
	if err := st.SwitchPlayer(3); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if st.ActivePlayer != 3 {
		t.Errorf("expected 3 active, got %d", st.ActivePlayer)
	}
	if err := st.SwitchPlayer(9); err == nil {
		t.Error("expected error for unknown player")
	}
	st.Players[0].IsEliminated = true
	if err := st.SwitchPlayer(1); err == nil {
		t.Error("expected error switching to eliminated player")
	}
}

func TestSwitchPlayer_BlockedDuringTargeting(t *testing.T) {
	st := runningGame(t, 3)
	st.Targeting = TargetingSelecting
	if err := st.SwitchPlayer(2); err == nil {
		t.Error("expected switch to be rejected during targeting")
	}
	st.Targeting = TargetingNone
	st.InterruptingPlayers = []int{2}
	if err := st.SwitchPlayer(2); err == nil {
		t.Error("expected switch to be rejected during interrupts")
	}
}

func TestPassTurn(t *testing.T) {
	st := runningGame(t, 3)
	if err := st.PassTurn(); err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if st.ActivePlayer != 2 {
		t.Errorf("expected 2 active, got %d", st.ActivePlayer)
	}
}

func TestEliminate_AdvancesTurn(t *testing.T) {
	st := runningGame(t, 3)
	if err := st.Eliminate(1); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	if !st.Players[0].IsEliminated {
		t.Error("player 1 not eliminated")
	}
	if st.ActivePlayer != 2 {
		t.Errorf("expected 2 active, got %d", st.ActivePlayer)
	}
	// Idempotent.
	if err := st.Eliminate(1); err != nil {
		t.Errorf("re-eliminate errored: %v", err)
	}
}

func TestEliminate_LastOpponentFinishesGame(t *testing.T) {
	st := runningGame(t, 2)
	if err := st.Eliminate(2); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	// Player 1 stands alone; eliminating them too ends the game.
	if err := st.Eliminate(1); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	if st.Status != StatusFinished {
		t.Errorf("expected finished, got %s", st.Status)
	}
}

func TestRevive(t *testing.T) {
	st := runningGame(t, 2)
	if err := st.Eliminate(2); err != nil {
		t.Fatalf("eliminate failed: %v", err)
	}
	if err := st.Revive(2); err != nil {
		t.Fatalf("revive failed: %v", err)
	}
	if st.Players[1].IsEliminated {
		t.Error("player 2 still eliminated")
	}
}

func TestAddTime(t *testing.T) {
	st := runningGame(t, 2)
	base := st.Players[0].TimeRemaining

	if err := st.AddTime(1, 5*60*1000); err != nil {
		t.Fatalf("addTime failed: %v", err)
	}
	if st.Players[0].TimeRemaining != base+5*60*1000 {
		t.Errorf("time not credited: %d", st.Players[0].TimeRemaining)
	}
	if err := st.AddTime(1, MinTimeAdjustment-1); err == nil {
		t.Error("expected error below minimum")
	}
	if err := st.AddTime(1, MaxTimeAdjustment+1); err == nil {
		t.Error("expected error above maximum")
	}

	// Credit clears a pending timeout.
	st.Players[0].TimeRemaining = 0
	st.Players[0].TimeoutPending = true
	if err := st.AddTime(1, MinTimeAdjustment); err != nil {
		t.Fatalf("addTime failed: %v", err)
	}
	if st.Players[0].TimeoutPending {
		t.Error("pending timeout survived a time credit")
	}
}

func TestUpdatePlayer(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(2))

	name := "Alice"
	life := 37
	if err := st.UpdatePlayer(1, PlayerUpdate{Name: &name, Life: &life}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if st.Players[0].Name != "Alice" || st.Players[0].Life != 37 {
		t.Errorf("update not applied: %+v", st.Players[0])
	}

	over := MaxLife + 1
	if err := st.UpdatePlayer(1, PlayerUpdate{Life: &over}); err == nil {
		t.Error("expected error for life above bound")
	}
	neg := -1
	if err := st.UpdatePlayer(1, PlayerUpdate{Drunk: &neg}); err == nil {
		t.Error("expected error for negative counter")
	}
	if err := st.UpdatePlayer(9, PlayerUpdate{}); err == nil {
		t.Error("expected error for unknown player")
	}
}

func TestUpdateSettings(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(4))

	next := testSettings(4)
	next.InitialTime = 10 * 60 * 1000
	if err := st.UpdateSettings(next); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if st.Players[0].TimeRemaining != next.InitialTime {
		t.Error("timers not refilled to new initial time")
	}

	shrunk := testSettings(2)
	if err := st.UpdateSettings(shrunk); err == nil {
		t.Error("expected error changing player count")
	}

	if err := st.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := st.UpdateSettings(next); err == nil {
		t.Error("expected error changing settings after start")
	}
}

func TestKick(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(2))
	if _, err := st.Claim(1, "ctrl-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := st.Kick(1); err != nil {
		t.Fatalf("kick failed: %v", err)
	}
	p := st.Players[0]
	if p.ClaimedBy != "" || p.ReconnectToken != "" || p.TokenExpiry != 0 {
		t.Errorf("kick left claim state behind: %+v", p)
	}
}
