package game

import "testing"

func TestClaim(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(3))

	token, err := st.Claim(1, "ctrl-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if token == "" || len(token) != 64 {
		t.Errorf("expected 64-hex token, got %q", token)
	}
	if st.Players[0].ClaimedBy != "ctrl-a" {
		t.Errorf("claim not recorded: %q", st.Players[0].ClaimedBy)
	}
	// First claimer becomes owner.
	if st.OwnerID != "ctrl-a" {
		t.Errorf("expected owner ctrl-a, got %q", st.OwnerID)
	}
}

func TestClaim_HeldSlotRejected(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(3))
	if _, err := st.Claim(1, "ctrl-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := st.Claim(1, "ctrl-b"); err != ErrAlreadyClaimed {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestClaim_OneSlotPerController(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(3))
	if _, err := st.Claim(1, "ctrl-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := st.Claim(2, "ctrl-a"); err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if st.Players[0].ClaimedBy != "" {
		t.Error("previous slot not released")
	}
	if st.Players[0].ReconnectToken != "" {
		t.Error("previous slot kept its token")
	}
	if st.Players[1].ClaimedBy != "ctrl-a" {
		t.Error("new slot not claimed")
	}
}

func TestClaim_SecondClaimKeepsOwner(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(3))
	if _, err := st.Claim(1, "ctrl-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := st.Claim(2, "ctrl-b"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if st.OwnerID != "ctrl-a" {
		t.Errorf("owner reassigned to %q", st.OwnerID)
	}
}

func TestUnclaim(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(3))
	if _, err := st.Claim(2, "ctrl-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	released := st.Unclaim("ctrl-a")
	if !equalInts(released, []int{2}) {
		t.Errorf("expected released [2], got %v", released)
	}
	p := st.Players[1]
	if p.ClaimedBy != "" || p.ReconnectToken != "" || p.TokenExpiry != 0 {
		t.Errorf("unclaim left state behind: %+v", p)
	}
	if st.Unclaim("ctrl-a") != nil {
		t.Error("second unclaim released something")
	}
}

func TestReconnect_RotatesToken(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(2))
	token, err := st.Claim(1, "ctrl-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	fresh, err := st.Reconnect(1, token, "ctrl-b")
	if err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	if fresh == token {
		t.Error("token did not rotate")
	}
	if st.Players[0].ClaimedBy != "ctrl-b" {
		t.Errorf("claim did not move: %q", st.Players[0].ClaimedBy)
	}
	// Ownership never moves with a reconnect.
	if st.OwnerID != "ctrl-a" {
		t.Errorf("owner reassigned to %q", st.OwnerID)
	}
	// The old token is spent.
	if _, err := st.Reconnect(1, token, "ctrl-c"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for spent token, got %v", err)
	}
}

func TestReconnect_ExpiredToken(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(2))
	token, err := st.Claim(1, "ctrl-a")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	saved := NowMillis
	NowMillis = func() int64 { return saved() + TokenTTLMillis + 1 }
	defer func() { NowMillis = saved }()

	if _, err := st.Reconnect(1, token, "ctrl-b"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestReconnect_WrongToken(t *testing.T) {
	st := NewState("ABCDEF", "game", ModeCasual, testSettings(2))
	if _, err := st.Claim(1, "ctrl-a"); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := st.Reconnect(1, MintToken(), "ctrl-b"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyToken(t *testing.T) {
	now := NowMillis()
	tok := MintToken()
	if !VerifyToken(tok, now+1000, tok) {
		t.Error("valid token rejected")
	}
	if VerifyToken(tok, now-1, tok) {
		t.Error("expired token accepted")
	}
	if VerifyToken(tok, now+1000, MintToken()) {
		t.Error("mismatched token accepted")
	}
	if VerifyToken("", now+1000, "") {
		t.Error("empty token accepted")
	}
}
