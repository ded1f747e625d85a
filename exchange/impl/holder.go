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
	"github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/commitment"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
	"github.com/storm-wg/go-storm/exchange/impl/holderstates"
	exnet "github.com/storm-wg/go-storm/exchange/network"
	"github.com/storm-wg/go-storm/index"
	"github.com/storm-wg/go-storm/storedcounter"
)

// HolderDsPrefix is the datastore namespace holder session state
// persists under
var HolderDsPrefix = "/exchange/holder"

// Holder serves locally held containers to remote requesters, driving
// each inbound proposal through the holder state machine
type Holder struct {
	net       exnet.ExchangeNetwork
	idx       *index.Index
	cfg       exchange.Config
	clock     clock.Clock
	counter   *storedcounter.StoredCounter
	slots     *transferSlots
	pubSub    *pubsub.PubSub
	announces *pubsub.PubSub

	stateMachines fsm.Group
	stopMonitor   context.CancelFunc

	streamsLk sync.RWMutex
	streams   map[exchange.ExchangeID]exnet.ExchangeStream
}

var _ exchange.Holder = &Holder{}
var _ exnet.ExchangeReceiver = &Holder{}
var _ holderstates.HolderEnvironment = &Holder{}

// HolderOption modifies a holder at construction
type HolderOption func(*Holder)

// HolderWithClock substitutes the wall clock the idle-session monitor
// runs on, for tests
func HolderWithClock(c clock.Clock) HolderOption {
	return func(h *Holder) {
		h.clock = c
	}
}

// NewHolder constructs a holder backed by the given network, storage
// index and datastore
func NewHolder(net exnet.ExchangeNetwork, idx *index.Index, ds datastore.Batching, cfg exchange.Config, options ...HolderOption) (*Holder, error) {
	if cfg == (exchange.Config{}) {
		cfg = exchange.DefaultConfig()
	}
	h := &Holder{
		net:       net,
		idx:       idx,
		cfg:       cfg,
		clock:     clock.New(),
		counter:   storedcounter.New(ds, datastore.NewKey(HolderDsPrefix+"/next-session-id")),
		slots:     newTransferSlots(cfg.MaxTransfersPerPeer),
		pubSub:    pubsub.New(holderDispatcher),
		announces: pubsub.New(announceDispatcher),
		streams:   make(map[exchange.ExchangeID]exnet.ExchangeStream),
	}
	for _, option := range options {
		option(h)
	}
	stateMachines, err := fsm.New(namespace.Wrap(ds, datastore.NewKey(HolderDsPrefix)), fsm.Parameters{
		Environment:     h,
		StateType:       exchange.HolderSession{},
		StateKeyField:   "Status",
		Events:          holderstates.HolderEvents,
		StateEntryFuncs: holderstates.HolderStateEntryFuncs,
		FinalityStates:  holderstates.HolderFinalityStates,
		Notifier:        h.notifySubscribers,
	})
	if err != nil {
		return nil, err
	}
	h.stateMachines = stateMachines
	return h, nil
}

// Start registers this holder for inbound exchange streams and
// launches the idle-session monitor
func (h *Holder) Start(ctx context.Context) error {
	mctx, cancel := context.WithCancel(ctx)
	h.stopMonitor = cancel
	go h.monitorSessions(mctx)
	return h.net.SetDelegate(h)
}

// Stop unregisters the stream handler, halts the monitor and all
// running state machines and closes any streams still open
func (h *Holder) Stop() error {
	var result error
	if err := h.net.StopHandlingRequests(); err != nil {
		result = multierror.Append(result, err)
	}
	if h.stopMonitor != nil {
		h.stopMonitor()
	}
	if err := h.stateMachines.Stop(context.TODO()); err != nil {
		result = multierror.Append(result, err)
	}
	h.streamsLk.Lock()
	defer h.streamsLk.Unlock()
	for id, s := range h.streams {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, xerrors.Errorf("closing stream for session %d: %w", id, err))
		}
		delete(h.streams, id)
	}
	return result
}

// HandleExchangeStream is the entry point for inbound streams. The
// first message decides what the stream is: a proposal opens a session
// that owns the stream for its lifetime, an announcement is consumed
// and the stream closed.
func (h *Holder) HandleExchangeStream(s exnet.ExchangeStream) {
	m, err := s.ReadMessage()
	if err != nil {
		log.Debugf("reading first message from %s: %s", s.RemotePeer(), err)
		_ = s.Close()
		return
	}
	switch m.Kind {
	case exnet.KindPropose:
		if err := h.newSession(s, m); err != nil {
			log.Errorf("opening session for %s: %s", s.RemotePeer(), err)
			_ = s.Close()
		}
	case exnet.KindAnnounce:
		h.handleAnnounce(s.RemotePeer(), m)
		_ = s.Close()
	default:
		log.Warnf("unexpected first message %s from %s", exnet.MessageKinds[m.Kind], s.RemotePeer())
		_ = s.Close()
	}
}

func (h *Holder) newSession(s exnet.ExchangeStream, m exnet.Message) error {
	next, err := h.counter.Next(context.TODO())
	if err != nil {
		return xerrors.Errorf("assigning a session id: %w", err)
	}
	id := exchange.ExchangeID(next)
	session := &exchange.HolderSession{
		ID:         id,
		PayloadCID: m.Propose.PayloadCID,
		Receiver:   s.RemotePeer(),
		Requested:  m.Propose.Indices,
		Status:     exchange.StatusNew,
	}
	s.TagProtectedConnection(holderTag(id))
	h.streamsLk.Lock()
	h.streams[id] = s
	h.streamsLk.Unlock()

	if err := h.stateMachines.Begin(id, session); err != nil {
		_ = h.CloseStream(id)
		return xerrors.Errorf("tracking session %d: %w", id, err)
	}
	return h.stateMachines.Send(id, exchange.HolderEventOpen)
}

// handleAnnounce records the announcing peer as a holder. A header
// that contradicts what the index already knows drops the announce on
// the floor.
func (h *Holder) handleAnnounce(from peer.ID, m exnet.Message) {
	payloadCID := m.Announce.PayloadCID
	if err := h.idx.RegisterHeader(payloadCID, m.Announce.Header); err != nil {
		log.Warnf("announce from %s for %s: %s", from, payloadCID, err)
		return
	}
	if err := h.idx.RecordHolder(payloadCID, from); err != nil {
		log.Warnf("recording %s as holder of %s: %s", from, payloadCID, err)
		return
	}
	err := h.announces.Publish(internalAnnounceEvent{payloadCID, from, m.Announce.Header})
	if err != nil {
		log.Warnf("publishing announce for %s: %s", payloadCID, err)
	}
}

// Announce tells a peer this node holds a complete container
func (h *Holder) Announce(ctx context.Context, payloadCID cid.Cid, to peer.ID) error {
	if !h.idx.HasComplete(payloadCID) {
		return xerrors.Errorf("container %s is not fully held, refusing to announce", payloadCID)
	}
	entry, err := h.idx.GetEntry(payloadCID)
	if err != nil {
		return err
	}
	s, err := h.net.NewExchangeStream(ctx, to)
	if err != nil {
		return xerrors.Errorf("connecting to %s: %w", to, err)
	}
	defer s.Close()
	if err := s.WriteMessage(exnet.NewAnnounce(payloadCID, entry.Header)); err != nil {
		return xerrors.Errorf("announcing %s to %s: %w", payloadCID, to, err)
	}
	return nil
}

// GetSession returns the current state of a single session
func (h *Holder) GetSession(id exchange.ExchangeID) (exchange.HolderSession, error) {
	var out exchange.HolderSession
	if err := h.stateMachines.Get(id).Get(&out); err != nil {
		return exchange.HolderSession{}, err
	}
	return out, nil
}

// ListSessions returns the current state of every session this holder
// tracks
func (h *Holder) ListSessions() ([]exchange.HolderSession, error) {
	var sessions []exchange.HolderSession
	if err := h.stateMachines.List(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SubscribeToEvents registers a listener for holder session events
func (h *Holder) SubscribeToEvents(subscriber exchange.HolderSubscriber) exchange.Unsubscribe {
	return exchange.Unsubscribe(h.pubSub.Subscribe(subscriber))
}

// SubscribeToAnnounces registers a listener for container
// announcements arriving from remote holders
func (h *Holder) SubscribeToAnnounces(subscriber exchange.AnnounceSubscriber) exchange.Unsubscribe {
	return exchange.Unsubscribe(h.announces.Subscribe(subscriber))
}

type internalHolderEvent struct {
	evt     exchange.HolderEvent
	session exchange.HolderSession
}

func holderDispatcher(evt pubsub.Event, subscriberFn pubsub.SubscriberFn) error {
	ie, ok := evt.(internalHolderEvent)
	if !ok {
		return xerrors.New("wrong type of event")
	}
	cb, ok := subscriberFn.(exchange.HolderSubscriber)
	if !ok {
		return xerrors.New("wrong type of callback")
	}
	cb(ie.evt, ie.session)
	return nil
}

type internalAnnounceEvent struct {
	payloadCID cid.Cid
	from       peer.ID
	header     container.Header
}

func announceDispatcher(evt pubsub.Event, subscriberFn pubsub.SubscriberFn) error {
	ae, ok := evt.(internalAnnounceEvent)
	if !ok {
		return xerrors.New("wrong type of event")
	}
	cb, ok := subscriberFn.(exchange.AnnounceSubscriber)
	if !ok {
		return xerrors.New("wrong type of callback")
	}
	cb(ae.payloadCID, ae.from, ae.header)
	return nil
}

func (h *Holder) notifySubscribers(eventName fsm.EventName, state fsm.StateType) {
	evt := eventName.(exchange.HolderEvent)
	session := state.(exchange.HolderSession)
	err := h.pubSub.Publish(internalHolderEvent{evt, session})
	if err != nil {
		log.Warnf("publishing holder event %s: %s", exchange.HolderEvents[evt], err)
	}

	if exchange.IsTerminalStatus(session.Status) {
		h.finishSession(session)
	}
}

// finishSession runs once per session, when it reaches a terminal
// status. The eviction pin is only dropped for sessions that validated
// a proposal, since that is where it was taken.
func (h *Holder) finishSession(session exchange.HolderSession) {
	if session.Status == exchange.StatusAborted {
		if s, err := h.Stream(session.ID); err == nil {
			if err := s.WriteMessage(exnet.NewAbort(session.PayloadCID, session.Message)); err != nil {
				log.Debugf("notifying %s of abort for session %d: %s", session.Receiver, session.ID, err)
			}
		}
	}
	if err := h.CloseStream(session.ID); err != nil {
		log.Warnf("closing stream for session %d: %s", session.ID, err)
	}
	h.slots.release(session.ID)
	if session.Header.Known() {
		h.idx.Unpin(session.PayloadCID)
	}
}

// Stream returns the open stream for a session
func (h *Holder) Stream(id exchange.ExchangeID) (exnet.ExchangeStream, error) {
	h.streamsLk.RLock()
	defer h.streamsLk.RUnlock()
	s, ok := h.streams[id]
	if !ok {
		return nil, xerrors.Errorf("no open stream for session %d", id)
	}
	return s, nil
}

// CloseStream closes and forgets the stream for a session. A session
// with no stream is a no-op.
func (h *Holder) CloseStream(id exchange.ExchangeID) error {
	h.streamsLk.Lock()
	s, ok := h.streams[id]
	delete(h.streams, id)
	h.streamsLk.Unlock()
	if !ok {
		return nil
	}
	s.UntagProtectedConnection(holderTag(id))
	return s.Close()
}

// LocalContainer reports what the index can prove for a container: its
// header and the positions held locally. Serving requires a membership
// proof for every delivery, and proofs need the full digest list, so a
// container with any unrecorded digest is unservable.
func (h *Holder) LocalContainer(payloadCID cid.Cid) (container.Header, []uint64, error) {
	entry, err := h.idx.GetEntry(payloadCID)
	if err != nil {
		return container.Header{}, nil, err
	}
	if !entry.Header.Known() {
		return container.Header{}, nil, index.ErrUnknownContainer
	}
	held := make([]uint64, 0, len(entry.Chunks))
	for i, rec := range entry.Chunks {
		if !rec.Digest.Defined() {
			return container.Header{}, nil, xerrors.Errorf("chunk %d of %s has no recorded digest", i, payloadCID)
		}
		if rec.Held {
			held = append(held, uint64(i))
		}
	}
	return entry.Header, held, nil
}

// LoadChunk reads a held chunk and builds its membership proof from
// the digests recorded in the index
func (h *Holder) LoadChunk(ctx context.Context, payloadCID cid.Cid, idx uint64) (chunk.Chunk, commitment.Proof, error) {
	c, held, err := h.idx.Get(ctx, payloadCID, idx)
	if err != nil {
		return chunk.Chunk{}, commitment.Proof{}, err
	}
	if !held {
		return chunk.Chunk{}, commitment.Proof{}, xerrors.Errorf("chunk %d of %s is not held", idx, payloadCID)
	}
	entry, err := h.idx.GetEntry(payloadCID)
	if err != nil {
		return chunk.Chunk{}, commitment.Proof{}, err
	}
	leaves := make([]chunk.Digest, len(entry.Chunks))
	for i, rec := range entry.Chunks {
		if !rec.Digest.Defined() {
			return chunk.Chunk{}, commitment.Proof{}, xerrors.Errorf("chunk %d of %s has no recorded digest", i, payloadCID)
		}
		leaves[i] = rec.Digest
	}
	proof, err := commitment.Prove(leaves, idx)
	if err != nil {
		return chunk.Chunk{}, commitment.Proof{}, err
	}
	return c, proof, nil
}

// ReserveTransferSlot blocks until a transfer slot with p frees up,
// bounded by the session timeout
func (h *Holder) ReserveTransferSlot(ctx context.Context, id exchange.ExchangeID, p peer.ID) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.SessionTimeout)
	defer cancel()
	return h.slots.reserve(ctx, id, p)
}

// PinContainer protects a container from eviction while a session
// serves from it
func (h *Holder) PinContainer(payloadCID cid.Cid) {
	h.idx.Pin(payloadCID)
}

// Config returns the session tuning this holder runs with
func (h *Holder) Config() exchange.Config {
	return h.cfg
}

func holderTag(id exchange.ExchangeID) string {
	return fmt.Sprintf("exchange-holder-%d", id)
}

// HolderFSMParameterSpec can be used to generate a state diagram for
// the holder FSM
var HolderFSMParameterSpec = fsm.Parameters{
	Environment:     &Holder{},
	StateType:       exchange.HolderSession{},
	StateKeyField:   "Status",
	Events:          holderstates.HolderEvents,
	StateEntryFuncs: holderstates.HolderStateEntryFuncs,
	FinalityStates:  holderstates.HolderFinalityStates,
}
