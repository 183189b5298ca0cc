package hub

import (
	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
	"github.com/onatuner/tap-or-tarp-sub001/internal/ticker"
)

// session is one hydrated game on this instance: the live state plus the
// tick task when this instance drives the countdown. The state pointer is
// only read or replaced under the game's keyed lock; the tick and unsub
// fields are guarded by the hub's session map lock.
type session struct {
	id    string
	state *game.State

	tick  *ticker.Ticker
	unsub func() // invalidation channel subscription
}
