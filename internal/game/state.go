package game

import (
	"html"
	"strconv"
	"time"
	"unicode/utf8"
)

// Status is the lifecycle phase of a game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Mode selects mode-specific rules (timeout resolutions, start permissions).
type Mode string

const (
	ModeCasual   Mode = "casual"
	ModeCampaign Mode = "campaign"
)

// TargetingPhase is the state of the targeting/priority sub-machine.
type TargetingPhase string

const (
	TargetingNone      TargetingPhase = "none"
	TargetingSelecting TargetingPhase = "selecting"
	TargetingResolving TargetingPhase = "resolving"
)

// Validation bounds for settings and player mutations.
const (
	MinPlayers        = 2
	MaxPlayers        = 8
	MaxInitialTime    = 24 * 60 * 60 * 1000 // ms
	MaxNameLength     = 50
	MaxWarnings       = 10
	MinDiceSides      = 2
	MaxDiceSides      = 100
	MinTimeAdjustment = 60 * 1000           // 1 minute
	MaxTimeAdjustment = 60 * 60 * 1000      // 60 minutes
	MinLife           = -999
	MaxLife           = 9999
	MaxCounter        = 999
)

// Settings are the per-game configuration chosen at creation.
type Settings struct {
	PlayerCount       int     `json:"playerCount"`
	InitialTime       int64   `json:"initialTime"` // ms per player
	WarningThresholds []int64 `json:"warningThresholds,omitempty"`

	// Mode-specific flags.
	AnyoneCanStart       bool `json:"anyoneCanStart,omitempty"`
	AllowUnclaimedSwitch bool `json:"allowUnclaimedSwitch,omitempty"`
}

// Validate checks settings against the protocol bounds.
func (s Settings) Validate() error {
	if s.PlayerCount < MinPlayers || s.PlayerCount > MaxPlayers {
		return ErrInvalidSettings
	}
	if s.InitialTime <= 0 || s.InitialTime > MaxInitialTime {
		return ErrInvalidSettings
	}
	if len(s.WarningThresholds) > MaxWarnings {
		return ErrInvalidSettings
	}
	for _, w := range s.WarningThresholds {
		if w <= 0 {
			return ErrInvalidSettings
		}
	}
	return nil
}

// Player is one seat at the table. Plain data; persisted as part of State.
type Player struct {
	ID             int    `json:"id"` // 1-based, stable for the game's life
	Name           string `json:"name"`
	Color          string `json:"color"`
	TimeRemaining  int64  `json:"timeRemaining"` // ms
	Life           int    `json:"life"`
	DrunkCounter   int    `json:"drunkCounter"`
	GenericCounter int    `json:"genericCounter"`
	IsEliminated   bool   `json:"isEliminated"`
	ClaimedBy      string `json:"claimedBy,omitempty"`
	ReconnectToken string `json:"reconnectToken,omitempty"`
	TokenExpiry    int64  `json:"tokenExpiry,omitempty"` // wall-clock ms
	TimeoutPending bool   `json:"timeoutPending,omitempty"`
}

// State is the persisted form of a game. Everything reachable from here is
// plain data so the (de)serialization boundary stays a pure data walk.
type State struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Mode         Mode      `json:"mode"`
	Status       Status    `json:"status"`
	OwnerID      string    `json:"ownerId,omitempty"`
	CreatedAt    int64     `json:"createdAt"`    // wall-clock ms
	LastActivity int64     `json:"lastActivity"` // wall-clock ms, monotone non-decreasing
	Players      []*Player `json:"players"`
	ActivePlayer int       `json:"activePlayer,omitempty"` // 0 = none
	Settings     Settings  `json:"settings"`

	Targeting            TargetingPhase `json:"targetingState"`
	TargetedPlayers      []int          `json:"targetedPlayers,omitempty"`
	AwaitingPriority     []int          `json:"awaitingPriority,omitempty"`
	OriginalActivePlayer int            `json:"originalActivePlayer,omitempty"`
	InterruptingPlayers  []int          `json:"interruptingPlayers,omitempty"`

	IsClosed bool `json:"isClosed,omitempty"`
}

// playerColors assigns a stable default color per seat.
var playerColors = []string{
	"#4a7c59", // green
	"#f44336", // red
	"#2196f3", // blue
	"#ff9800", // orange
	"#9c27b0", // purple
	"#ffeb3b", // yellow
	"#00bcd4", // cyan
	"#795548", // brown
}

// NewState builds a fresh game in the waiting state. Settings must already
// be validated.
func NewState(id, name string, mode Mode, set Settings) *State {
	now := NowMillis()
	if mode == "" {
		mode = ModeCasual
	}
	st := &State{
		ID:           id,
		Name:         name,
		Mode:         mode,
		Status:       StatusWaiting,
		CreatedAt:    now,
		LastActivity: now,
		Settings:     set,
		Targeting:    TargetingNone,
		Players:      make([]*Player, 0, set.PlayerCount),
	}
	for i := 1; i <= set.PlayerCount; i++ {
		st.Players = append(st.Players, &Player{
			ID:            i,
			Name:          defaultPlayerName(i),
			Color:         playerColors[(i-1)%len(playerColors)],
			TimeRemaining: set.InitialTime,
		})
	}
	return st
}

func defaultPlayerName(i int) string {
	return "Player " + strconv.Itoa(i)
}

// Player returns the player with the given id, or nil.
func (s *State) Player(id int) *Player {
	if id < 1 || id > len(s.Players) {
		return nil
	}
	// Players are ordered by id; index directly but verify.
	p := s.Players[id-1]
	if p.ID == id {
		return p
	}
	for _, q := range s.Players {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// Touch advances lastActivity, keeping it monotone non-decreasing.
func (s *State) Touch() {
	now := NowMillis()
	if now > s.LastActivity {
		s.LastActivity = now
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		c.Players[i] = &cp
	}
	c.TargetedPlayers = append([]int(nil), s.TargetedPlayers...)
	c.AwaitingPriority = append([]int(nil), s.AwaitingPriority...)
	c.InterruptingPlayers = append([]int(nil), s.InterruptingPlayers...)
	c.Settings.WarningThresholds = append([]int64(nil), s.Settings.WarningThresholds...)
	return &c
}

// Public returns a copy safe for broadcast: reconnect tokens never leave
// the claiming controller.
func (s *State) Public() *State {
	c := s.Clone()
	for _, p := range c.Players {
		p.ReconnectToken = ""
		p.TokenExpiry = 0
	}
	return c
}

// AdoptTimers copies the countdown fields from src. The tick engine owns
// these on the instance running it, so write-throughs overlay them onto the
// stored state rather than letting a stale read clobber the countdown.
func (s *State) AdoptTimers(src *State) {
	for _, p := range s.Players {
		if q := src.Player(p.ID); q != nil {
			p.TimeRemaining = q.TimeRemaining
			p.TimeoutPending = q.TimeoutPending
		}
	}
}

// TimeMap returns the compact per-player time map carried by tick events.
func (s *State) TimeMap() map[int]int64 {
	m := make(map[int]int64, len(s.Players))
	for _, p := range s.Players {
		m[p.ID] = p.TimeRemaining
	}
	return m
}

// SanitizeName validates and HTML-entity-encodes a user-supplied name.
func SanitizeName(name string) (string, error) {
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidSettings
	}
	return html.EscapeString(name), nil
}

// NowMillis is the wall clock in milliseconds. Swappable in tests.
var NowMillis = func() int64 {
	return time.Now().UnixMilli()
}

