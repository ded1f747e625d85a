package exchangeimpl

import (
	"context"
	"time"

	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/exchange"
)

// The monitors watch persisted sessions for stalls the state machines
// cannot observe themselves: a remote that goes quiet between
// messages, a partially failed session nobody retries, or sessions
// reloaded after a restart with no entry function running. A session
// whose progress marker has not moved for a full session timeout is
// timed out, which routes requester sessions into the partial failure
// path where the retry logic takes over.

type requesterMarker struct {
	status        exchange.Status
	totalReceived uint64
	retries       uint64
	violations    uint64
}

type requesterObservation struct {
	marker requesterMarker
	at     time.Time
}

func (r *Requester) monitorSessions(ctx context.Context) {
	ticker := r.clock.Ticker(r.cfg.MonitorInterval)
	defer ticker.Stop()

	seen := make(map[exchange.ExchangeID]requesterObservation)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepSessions(seen)
		}
	}
}

func (r *Requester) sweepSessions(seen map[exchange.ExchangeID]requesterObservation) {
	sessions, err := r.ListSessions()
	if err != nil {
		log.Warnf("listing requester sessions: %s", err)
		return
	}
	now := r.clock.Now()
	live := make(map[exchange.ExchangeID]struct{}, len(sessions))
	for _, session := range sessions {
		if exchange.IsTerminalStatus(session.Status) {
			continue
		}
		live[session.ID] = struct{}{}
		marker := requesterMarker{session.Status, session.TotalReceived, session.Retries, session.Violations}
		obs, ok := seen[session.ID]
		if !ok || obs.marker != marker {
			seen[session.ID] = requesterObservation{marker, now}
			continue
		}
		if now.Sub(obs.at) < r.cfg.SessionTimeout {
			continue
		}
		delete(seen, session.ID)
		if session.Status == exchange.StatusPartiallyFailed {
			if err := r.stateMachines.Send(session.ID, exchange.RequesterEventExpired); err != nil {
				log.Debugf("expiring session %d: %s", session.ID, err)
			}
			continue
		}
		err := r.stateMachines.Send(session.ID, exchange.RequesterEventTimedOut,
			xerrors.Errorf("no progress for %s", now.Sub(obs.at)))
		if err != nil {
			log.Debugf("timing out session %d: %s", session.ID, err)
		}
	}
	for id := range seen {
		if _, ok := live[id]; !ok {
			delete(seen, id)
		}
	}
}

type holderMarker struct {
	status     exchange.Status
	sent       uint64
	totalSent  uint64
	violations uint64
}

type holderObservation struct {
	marker holderMarker
	at     time.Time
}

func (h *Holder) monitorSessions(ctx context.Context) {
	ticker := h.clock.Ticker(h.cfg.MonitorInterval)
	defer ticker.Stop()

	seen := make(map[exchange.ExchangeID]holderObservation)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweepSessions(seen)
		}
	}
}

func (h *Holder) sweepSessions(seen map[exchange.ExchangeID]holderObservation) {
	sessions, err := h.ListSessions()
	if err != nil {
		log.Warnf("listing holder sessions: %s", err)
		return
	}
	now := h.clock.Now()
	live := make(map[exchange.ExchangeID]struct{}, len(sessions))
	for _, session := range sessions {
		if exchange.IsTerminalStatus(session.Status) {
			continue
		}
		live[session.ID] = struct{}{}
		marker := holderMarker{session.Status, session.Sent, session.TotalSent, session.Violations}
		obs, ok := seen[session.ID]
		if !ok || obs.marker != marker {
			seen[session.ID] = holderObservation{marker, now}
			continue
		}
		if now.Sub(obs.at) < h.cfg.SessionTimeout {
			continue
		}
		delete(seen, session.ID)
		err := h.stateMachines.Send(session.ID, exchange.HolderEventTimedOut,
			xerrors.Errorf("no progress for %s", now.Sub(obs.at)))
		if err != nil {
			log.Debugf("timing out session %d: %s", session.ID, err)
		}
	}
	for id := range seen {
		if _, ok := live[id]; !ok {
			delete(seen, id)
		}
	}
}
