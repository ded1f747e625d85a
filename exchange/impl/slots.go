package exchangeimpl

import (
	"context"
	"sync"

	"github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/exchange"
)

// transferSlots bounds the number of concurrent transfers a node runs
// with any single remote. Sessions that cannot reserve a slot queue in
// FIFO order and wake as earlier sessions finish.
type transferSlots struct {
	perPeer int

	lk      sync.Mutex
	held    map[exchange.ExchangeID]peer.ID
	counts  map[peer.ID]int
	waiters map[peer.ID][]chan struct{}
}

func newTransferSlots(perPeer int) *transferSlots {
	return &transferSlots{
		perPeer: perPeer,
		held:    make(map[exchange.ExchangeID]peer.ID),
		counts:  make(map[peer.ID]int),
		waiters: make(map[peer.ID][]chan struct{}),
	}
}

// reserve blocks until a slot with p is free or ctx expires. Reserving
// again for a session that already holds a slot is a no-op, so state
// entry functions may retry it safely.
func (ts *transferSlots) reserve(ctx context.Context, id exchange.ExchangeID, p peer.ID) error {
	for {
		ts.lk.Lock()
		if _, ok := ts.held[id]; ok {
			ts.lk.Unlock()
			return nil
		}
		if ts.perPeer <= 0 || ts.counts[p] < ts.perPeer {
			ts.counts[p]++
			ts.held[id] = p
			ts.lk.Unlock()
			return nil
		}
		ready := make(chan struct{})
		ts.waiters[p] = append(ts.waiters[p], ready)
		ts.lk.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			ts.drop(p, ready)
			return xerrors.Errorf("waiting for a transfer slot with %s: %w", p, ctx.Err())
		}
	}
}

// release frees the slot a session holds, if any, and wakes the next
// waiter for that peer.
func (ts *transferSlots) release(id exchange.ExchangeID) {
	ts.lk.Lock()
	defer ts.lk.Unlock()

	p, ok := ts.held[id]
	if !ok {
		return
	}
	delete(ts.held, id)
	ts.counts[p]--
	if ts.counts[p] <= 0 {
		delete(ts.counts, p)
	}
	ts.wakeLocked(p)
}

// drop removes a waiter that gave up. If the waiter was already woken
// its wake is forwarded so the slot is not lost.
func (ts *transferSlots) drop(p peer.ID, ready chan struct{}) {
	ts.lk.Lock()
	defer ts.lk.Unlock()

	queue := ts.waiters[p]
	for i, c := range queue {
		if c == ready {
			ts.waiters[p] = append(queue[:i], queue[i+1:]...)
			if len(ts.waiters[p]) == 0 {
				delete(ts.waiters, p)
			}
			return
		}
	}
	select {
	case <-ready:
		ts.wakeLocked(p)
	default:
	}
}

func (ts *transferSlots) wakeLocked(p peer.ID) {
	queue := ts.waiters[p]
	if len(queue) == 0 {
		return
	}
	close(queue[0])
	ts.waiters[p] = queue[1:]
	if len(ts.waiters[p]) == 0 {
		delete(ts.waiters, p)
	}
}
