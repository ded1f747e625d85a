package exchangeimpl

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/filecoin-project/go-statemachine/fsm"
	"github.com/hannahhoward/go-pubsub"
	"github.com/hashicorp/go-multierror"
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
	"github.com/storm-wg/go-storm/exchange/impl/requesterstates"
	exnet "github.com/storm-wg/go-storm/exchange/network"
	"github.com/storm-wg/go-storm/index"
	"github.com/storm-wg/go-storm/storedcounter"
)

var log = logging.Logger("storm_exchange_impl")

// RequesterDsPrefix is the datastore namespace requester session state
// persists under
var RequesterDsPrefix = "/exchange/requester"

// Requester fetches containers from remote holders, driving each
// session through the requester state machine
type Requester struct {
	net     exnet.ExchangeNetwork
	idx     *index.Index
	cfg     exchange.Config
	clock   clock.Clock
	counter *storedcounter.StoredCounter
	slots   *transferSlots
	pubSub  *pubsub.PubSub

	stateMachines fsm.Group
	stopMonitor   context.CancelFunc

	streamsLk sync.RWMutex
	streams   map[exchange.ExchangeID]exnet.ExchangeStream
}

var _ exchange.Requester = &Requester{}
var _ requesterstates.RequesterEnvironment = &Requester{}

// RequesterOption modifies a requester at construction
type RequesterOption func(*Requester)

// RequesterWithClock substitutes the wall clock the idle-session
// monitor runs on, for tests
func RequesterWithClock(c clock.Clock) RequesterOption {
	return func(r *Requester) {
		r.clock = c
	}
}

// NewRequester constructs a requester backed by the given network,
// storage index and datastore
func NewRequester(net exnet.ExchangeNetwork, idx *index.Index, ds datastore.Batching, cfg exchange.Config, options ...RequesterOption) (*Requester, error) {
	if cfg == (exchange.Config{}) {
		cfg = exchange.DefaultConfig()
	}
	r := &Requester{
		net:     net,
		idx:     idx,
		cfg:     cfg,
		clock:   clock.New(),
		counter: storedcounter.New(ds, datastore.NewKey(RequesterDsPrefix+"/next-session-id")),
		slots:   newTransferSlots(cfg.MaxTransfersPerPeer),
		pubSub:  pubsub.New(requesterDispatcher),
		streams: make(map[exchange.ExchangeID]exnet.ExchangeStream),
	}
	for _, option := range options {
		option(r)
	}
	stateMachines, err := fsm.New(namespace.Wrap(ds, datastore.NewKey(RequesterDsPrefix)), fsm.Parameters{
		Environment:     r,
		StateType:       exchange.Session{},
		StateKeyField:   "Status",
		Events:          requesterstates.RequesterEvents,
		StateEntryFuncs: requesterstates.RequesterStateEntryFuncs,
		FinalityStates:  requesterstates.RequesterFinalityStates,
		Notifier:        r.notifySubscribers,
	})
	if err != nil {
		return nil, err
	}
	r.stateMachines = stateMachines
	return r, nil
}

// Start launches the idle-session monitor. Sessions persisted by an
// earlier run resume through it: a session that makes no progress is
// timed out into the partial failure path and retried from there.
func (r *Requester) Start(ctx context.Context) error {
	mctx, cancel := context.WithCancel(ctx)
	r.stopMonitor = cancel
	go r.monitorSessions(mctx)
	return nil
}

// Stop halts the monitor and all running state machines and closes any
// streams still open
func (r *Requester) Stop() error {
	if r.stopMonitor != nil {
		r.stopMonitor()
	}
	var result error
	if err := r.stateMachines.Stop(context.TODO()); err != nil {
		result = multierror.Append(result, err)
	}
	r.streamsLk.Lock()
	defer r.streamsLk.Unlock()
	for id, s := range r.streams {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, xerrors.Errorf("closing stream for session %d: %w", id, err))
		}
		delete(r.streams, id)
	}
	return result
}

// Request opens a session fetching a container, or a subset of its
// chunks, from the given holder. Empty indices requests everything the
// container commits to. The container is pinned against eviction until
// the session ends.
func (r *Requester) Request(ctx context.Context, payloadCID cid.Cid, from peer.ID, indices []uint64) (exchange.ExchangeID, error) {
	if _, err := container.RootOfID(payloadCID); err != nil {
		return 0, xerrors.Errorf("container id does not carry a commitment root: %w", err)
	}
	if err := r.idx.RecordHolder(payloadCID, from); err != nil {
		return 0, xerrors.Errorf("recording holder for %s: %w", payloadCID, err)
	}
	next, err := r.counter.Next(ctx)
	if err != nil {
		return 0, err
	}
	id := exchange.ExchangeID(next)
	requested := make([]uint64, len(indices))
	copy(requested, indices)
	session := &exchange.Session{
		ID:               id,
		PayloadCID:       payloadCID,
		Sender:           from,
		RequestedIndices: requested,
		Status:           exchange.StatusNew,
	}
	if err := r.stateMachines.Begin(id, session); err != nil {
		return 0, xerrors.Errorf("tracking session %d: %w", id, err)
	}
	r.idx.Pin(payloadCID)
	if err := r.stateMachines.Send(id, exchange.RequesterEventOpen); err != nil {
		return 0, err
	}
	return id, nil
}

// Retry re-proposes the missing chunks of a partially failed session
// to the given peer, which may be the original holder or a different
// one
func (r *Requester) Retry(ctx context.Context, id exchange.ExchangeID, from peer.ID) error {
	session, err := r.GetSession(id)
	if err != nil {
		return err
	}
	if session.Status != exchange.StatusPartiallyFailed {
		return xerrors.Errorf("session %d is %s, only partially failed sessions retry", id, exchange.Statuses[session.Status])
	}
	if err := r.idx.RecordHolder(session.PayloadCID, from); err != nil {
		return xerrors.Errorf("recording holder for %s: %w", session.PayloadCID, err)
	}
	return r.stateMachines.Send(id, exchange.RequesterEventRetry, from)
}

// Cancel aborts a session. Chunks already verified stay in the index.
func (r *Requester) Cancel(ctx context.Context, id exchange.ExchangeID) error {
	session, err := r.GetSession(id)
	if err != nil {
		return err
	}
	if exchange.IsTerminalStatus(session.Status) {
		return xerrors.Errorf("session %d already ended as %s", id, exchange.Statuses[session.Status])
	}
	return r.stateMachines.Send(id, exchange.RequesterEventCancelled)
}

// GetSession returns the current state of a single session
func (r *Requester) GetSession(id exchange.ExchangeID) (exchange.Session, error) {
	var out exchange.Session
	if err := r.stateMachines.Get(id).Get(&out); err != nil {
		return exchange.Session{}, err
	}
	return out, nil
}

// ListSessions returns the current state of every session this
// requester tracks
func (r *Requester) ListSessions() ([]exchange.Session, error) {
	var sessions []exchange.Session
	if err := r.stateMachines.List(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SubscribeToEvents registers a listener for requester session events
func (r *Requester) SubscribeToEvents(subscriber exchange.RequesterSubscriber) exchange.Unsubscribe {
	return exchange.Unsubscribe(r.pubSub.Subscribe(subscriber))
}

type internalRequesterEvent struct {
	evt     exchange.RequesterEvent
	session exchange.Session
}

func requesterDispatcher(evt pubsub.Event, subscriberFn pubsub.SubscriberFn) error {
	ie, ok := evt.(internalRequesterEvent)
	if !ok {
		return xerrors.New("wrong type of event")
	}
	cb, ok := subscriberFn.(exchange.RequesterSubscriber)
	if !ok {
		return xerrors.New("wrong type of callback")
	}
	cb(ie.evt, ie.session)
	return nil
}

// notifySubscribers fans session events out to subscribers and handles
// the bookkeeping tied to status changes: holders that reject for an
// unknown container are dropped from the index, partial failures free
// their transfer slot so the retry can reserve again, and terminal
// sessions are torn down.
func (r *Requester) notifySubscribers(eventName fsm.EventName, state fsm.StateType) {
	evt := eventName.(exchange.RequesterEvent)
	session := state.(exchange.Session)
	err := r.pubSub.Publish(internalRequesterEvent{evt, session})
	if err != nil {
		log.Warnf("publishing requester event %s: %s", exchange.RequesterEvents[evt], err)
	}

	if evt == exchange.RequesterEventRejected && session.RejectionReason == exchange.RejectUnknownContainer {
		if err := r.idx.ForgetHolder(session.PayloadCID, session.Sender); err != nil {
			log.Warnf("dropping holder %s for %s: %s", session.Sender, session.PayloadCID, err)
		}
	}

	switch session.Status {
	case exchange.StatusPartiallyFailed:
		r.slots.release(session.ID)
	case exchange.StatusCompleted, exchange.StatusRejected, exchange.StatusAborted:
		r.finishSession(session)
	}
}

// finishSession runs once per session, when it reaches a terminal
// status. Locally aborted sessions hand the holder an abort notice
// first so it can stop sending.
func (r *Requester) finishSession(session exchange.Session) {
	if session.Status == exchange.StatusAborted {
		if s, err := r.Stream(session.ID); err == nil {
			if err := s.WriteMessage(exnet.NewAbort(session.PayloadCID, session.Message)); err != nil {
				log.Debugf("notifying %s of abort for session %d: %s", session.Sender, session.ID, err)
			}
		}
	}
	if err := r.CloseStream(session.ID); err != nil {
		log.Warnf("closing stream for session %d: %s", session.ID, err)
	}
	r.slots.release(session.ID)
	r.idx.Unpin(session.PayloadCID)
}

// OpenExchangeStream connects to a holder and records the stream under
// the session, protecting the connection while the session runs
func (r *Requester) OpenExchangeStream(ctx context.Context, id exchange.ExchangeID, p peer.ID) (exnet.ExchangeStream, error) {
	if err := r.CloseStream(id); err != nil {
		log.Warnf("closing stale stream for session %d: %s", id, err)
	}
	s, err := r.net.NewExchangeStream(ctx, p)
	if err != nil {
		return nil, err
	}
	s.TagProtectedConnection(requesterTag(id))
	r.streamsLk.Lock()
	r.streams[id] = s
	r.streamsLk.Unlock()
	return s, nil
}

// Stream returns the open stream for a session
func (r *Requester) Stream(id exchange.ExchangeID) (exnet.ExchangeStream, error) {
	r.streamsLk.RLock()
	defer r.streamsLk.RUnlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, xerrors.Errorf("no open stream for session %d", id)
	}
	return s, nil
}

// CloseStream closes and forgets the stream for a session. A session
// with no stream is a no-op.
func (r *Requester) CloseStream(id exchange.ExchangeID) error {
	r.streamsLk.Lock()
	s, ok := r.streams[id]
	delete(r.streams, id)
	r.streamsLk.Unlock()
	if !ok {
		return nil
	}
	s.UntagProtectedConnection(requesterTag(id))
	return s.Close()
}

// ReserveTransferSlot blocks until a transfer slot with p frees up,
// bounded by the session timeout
func (r *Requester) ReserveTransferSlot(ctx context.Context, id exchange.ExchangeID, p peer.ID) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SessionTimeout)
	defer cancel()
	return r.slots.reserve(ctx, id, p)
}

// StoreChunk commits a verified chunk to the local index
func (r *Requester) StoreChunk(ctx context.Context, payloadCID cid.Cid, index uint64, c chunk.Chunk) error {
	_, err := r.idx.Put(ctx, payloadCID, index, c)
	return err
}

// RegisterOffer records the header a holder offered so deliveries can
// be verified against its commitment
func (r *Requester) RegisterOffer(payloadCID cid.Cid, header container.Header) error {
	return r.idx.RegisterHeader(payloadCID, header)
}

// DowngradeHolder marks a failed attempt against a holder in the index
func (r *Requester) DowngradeHolder(payloadCID cid.Cid, p peer.ID) error {
	return r.idx.DowngradeHolder(payloadCID, p)
}

// NextHolder picks the best known holder for a container other than
// the one a failed attempt used
func (r *Requester) NextHolder(payloadCID cid.Cid, exclude peer.ID) (peer.ID, bool) {
	for _, p := range r.idx.KnownHolders(payloadCID) {
		if p != exclude {
			return p, true
		}
	}
	return "", false
}

// Config returns the session tuning this requester runs with
func (r *Requester) Config() exchange.Config {
	return r.cfg
}

func requesterTag(id exchange.ExchangeID) string {
	return fmt.Sprintf("exchange-requester-%d", id)
}

// RequesterFSMParameterSpec can be used to generate a state diagram
// for the requester FSM
var RequesterFSMParameterSpec = fsm.Parameters{
	Environment:     &Requester{},
	StateType:       exchange.Session{},
	StateKeyField:   "Status",
	Events:          requesterstates.RequesterEvents,
	StateEntryFuncs: requesterstates.RequesterStateEntryFuncs,
	FinalityStates:  requesterstates.RequesterFinalityStates,
}
