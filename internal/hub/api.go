package hub

import (
	"context"
	"time"

	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
)

// GameSummary is one row of the read-only game listing.
type GameSummary struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Mode         game.Mode   `json:"mode"`
	Status       game.Status `json:"status"`
	PlayerCount  int         `json:"playerCount"`
	Subscribers  int         `json:"subscribers"`
	CreatedAt    int64       `json:"createdAt"`
	LastActivity int64       `json:"lastActivity"`
}

// Games lists the games hydrated on this instance. Each state is read under
// its keyed lock so the tick engine never races the listing.
func (h *Hub) Games(ctx context.Context) []GameSummary {
	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	out := make([]GameSummary, 0, len(ids))
	for _, id := range ids {
		lctx, cancel := context.WithTimeout(ctx, time.Second)
		_ = h.locks.WithLock(lctx, id, func() error {
			sess := h.session(id)
			if sess == nil {
				return nil
			}
			st := sess.state
			out = append(out, GameSummary{
				ID:           st.ID,
				Name:         st.Name,
				Mode:         st.Mode,
				Status:       st.Status,
				PlayerCount:  len(st.Players),
				Subscribers:  h.bus.SubscriberCount(id),
				CreatedAt:    st.CreatedAt,
				LastActivity: st.LastActivity,
			})
			return nil
		})
		cancel()
	}
	return out
}

// Game returns a broadcast-safe snapshot of one game.
func (h *Hub) Game(ctx context.Context, id string) (*game.State, error) {
	var snap *game.State
	err := h.locks.WithLock(ctx, id, func() error {
		sess, err := h.ensureLoaded(ctx, id)
		if err != nil {
			return err
		}
		if sess.state.IsClosed {
			return game.ErrGameNotFound
		}
		snap = sess.state.Public()
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return snap, nil
}

// StorePing probes the store, for the health endpoint.
func (h *Hub) StorePing(ctx context.Context) error {
	return h.store.Ping(ctx)
}
