package host

import (
	"context"

	"github.com/coleschaffer/OpenCatan-sub003/internal/sim/game"
)

// Subscription is one viewer's event stream. C carries every accepted delta,
// filtered for Viewer, in version order starting right after the state
// returned by Subscribe. C is closed when the host stops or drops the
// subscriber for falling behind; the viewer must then resubscribe.
type Subscription struct {
	Viewer game.PlayerID
	C      <-chan game.Delta

	id uint64
	ch chan game.Delta
	h  *Host
}

type subscribeReq struct {
	viewer game.PlayerID
	resp   chan subscribeResp
}

type subscribeResp struct {
	sub   *Subscription
	state game.State
}

// Subscribe registers viewer and returns its current view. The empty viewer
// sees every event unfiltered.
func (h *Host) Subscribe(ctx context.Context, viewer game.PlayerID) (*Subscription, game.State, error) {
	req := subscribeReq{viewer: viewer, resp: make(chan subscribeResp, 1)}
	select {
	case h.subscribe <- req:
	case <-h.done:
		return nil, game.State{}, ErrStopped
	case <-ctx.Done():
		return nil, game.State{}, ctx.Err()
	}
	select {
	case r := <-req.resp:
		return r.sub, r.state, nil
	case <-h.done:
		return nil, game.State{}, ErrStopped
	case <-ctx.Done():
		return nil, game.State{}, ctx.Err()
	}
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	select {
	case s.h.unsubscribe <- s:
	case <-s.h.done:
	}
}

func (h *Host) addSubscriber(req subscribeReq) {
	h.nextSub++
	ch := make(chan game.Delta, h.cfg.SubscriberBuffer)
	s := &Subscription{Viewer: req.viewer, C: ch, id: h.nextSub, ch: ch, h: h}
	h.subs[s.id] = s
	req.resp <- subscribeResp{sub: s, state: h.g.View(req.viewer)}
}

func (h *Host) removeSubscriber(s *Subscription) {
	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	close(s.ch)
}

func (h *Host) publish(d game.Delta) {
	for id, s := range h.subs {
		select {
		case s.ch <- d.For(s.Viewer):
		default:
			h.log.Printf("dropping slow subscriber %q at version %d", s.Viewer, d.Version)
			delete(h.subs, id)
			close(s.ch)
		}
	}
}
