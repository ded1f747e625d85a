package holderstates

import (
	"context"

	"github.com/filecoin-project/go-statemachine/fsm"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/commitment"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
	exnet "github.com/storm-wg/go-storm/exchange/network"
	"github.com/storm-wg/go-storm/index"
)

var log = logging.Logger("storm_exchange_impl")

// HolderEnvironment is an abstraction for interacting with
// dependencies from the exchange holder environment
type HolderEnvironment interface {
	Stream(id exchange.ExchangeID) (exnet.ExchangeStream, error)
	LocalContainer(payloadCID cid.Cid) (container.Header, []uint64, error)
	LoadChunk(ctx context.Context, payloadCID cid.Cid, idx uint64) (chunk.Chunk, commitment.Proof, error)
	ReserveTransferSlot(ctx context.Context, id exchange.ExchangeID, p peer.ID) error
	PinContainer(payloadCID cid.Cid)
	Config() exchange.Config
}

// HolderStateEntryFunc is the type for all state entry functions on an exchange holder
type HolderStateEntryFunc func(ctx fsm.Context, environment HolderEnvironment, session exchange.HolderSession) error

// EvaluateProposal decides whether this node can serve the proposal and
// answers with either an offer path or a rejection
func EvaluateProposal(ctx fsm.Context, environment HolderEnvironment, session exchange.HolderSession) error {
	s, err := environment.Stream(session.ID)
	if err != nil {
		return ctx.Trigger(exchange.HolderEventStreamLookupErrored, err)
	}

	header, held, err := environment.LocalContainer(session.PayloadCID)
	if err != nil {
		reason := exchange.RejectChunksUnavailable
		if xerrors.Is(err, index.ErrUnknownContainer) {
			reason = exchange.RejectUnknownContainer
		}
		return rejectProposal(ctx, s, session, reason, err.Error())
	}

	offered := intersectIndices(held, session.Requested)
	if len(offered) == 0 {
		return rejectProposal(ctx, s, session, exchange.RejectChunksUnavailable, "none of the requested chunks are held")
	}

	if err := environment.ReserveTransferSlot(ctx.Context(), session.ID, session.Receiver); err != nil {
		return rejectProposal(ctx, s, session, exchange.RejectBusy, err.Error())
	}

	environment.PinContainer(session.PayloadCID)

	return ctx.Trigger(exchange.HolderEventProposalValidated, header, offered)
}

// SendOffer writes the offer for whatever intersection of the proposal
// this node can serve
func SendOffer(ctx fsm.Context, environment HolderEnvironment, session exchange.HolderSession) error {
	s, err := environment.Stream(session.ID)
	if err != nil {
		return ctx.Trigger(exchange.HolderEventStreamLookupErrored, err)
	}

	offer := exnet.NewOffer(session.PayloadCID, session.Header, session.Offered)
	if err := s.WriteMessage(offer); err != nil {
		return ctx.Trigger(exchange.HolderEventWriteFailed, err)
	}

	return ctx.Trigger(exchange.HolderEventOffered)
}

// AwaitAccept reads the requester's answer to the offer
func AwaitAccept(ctx fsm.Context, environment HolderEnvironment, session exchange.HolderSession) error {
	if session.Violations > 1 {
		return ctx.Trigger(exchange.HolderEventViolationLimit)
	}

	s, err := environment.Stream(session.ID)
	if err != nil {
		return ctx.Trigger(exchange.HolderEventStreamLookupErrored, err)
	}

	m, err := s.ReadMessage()
	if err != nil {
		if exnet.IsTimeout(err) {
			return ctx.Trigger(exchange.HolderEventTimedOut, err)
		}
		if exnet.IsClosed(err) {
			return ctx.Trigger(exchange.HolderEventReadFailed, err)
		}
		return ctx.Trigger(exchange.HolderEventProtocolViolation, err)
	}

	switch m.Kind {
	case exnet.KindAccept:
		if !m.Accept.PayloadCID.Equals(session.PayloadCID) {
			return ctx.Trigger(exchange.HolderEventProtocolViolation,
				xerrors.Errorf("acceptance names container %s, session is for %s", m.Accept.PayloadCID, session.PayloadCID))
		}
		return ctx.Trigger(exchange.HolderEventAcceptReceived, m.Accept.Indices)
	case exnet.KindAbort:
		return ctx.Trigger(exchange.HolderEventPeerAborted, m.Abort.Message)
	default:
		return ctx.Trigger(exchange.HolderEventProtocolViolation,
			xerrors.Errorf("unexpected %s while waiting for an acceptance", exnet.MessageKinds[m.Kind]))
	}
}

// PrepareTransfer checks the acceptance against the offer before any
// delivery goes out
func PrepareTransfer(ctx fsm.Context, environment HolderEnvironment, session exchange.HolderSession) error {
	if err := validateAcceptance(session); err != nil {
		return ctx.Trigger(exchange.HolderEventAcceptInvalid, err)
	}

	return ctx.Trigger(exchange.HolderEventBeginSending)
}

// SendChunks delivers the next accepted chunk with its membership proof
func SendChunks(ctx fsm.Context, environment HolderEnvironment, session exchange.HolderSession) error {
	if session.Sent >= uint64(len(session.Accepted)) {
		return ctx.Trigger(exchange.HolderEventAllChunksSent)
	}

	s, err := environment.Stream(session.ID)
	if err != nil {
		return ctx.Trigger(exchange.HolderEventStreamLookupErrored, err)
	}

	idx := session.Accepted[session.Sent]
	ck, proof, err := environment.LoadChunk(ctx.Context(), session.PayloadCID, idx)
	if err != nil {
		return ctx.Trigger(exchange.HolderEventChunkUnavailable, idx, err)
	}

	delivery := exnet.NewDelivery(session.PayloadCID, idx, ck.Bytes(), proof)
	if err := s.WriteMessage(delivery); err != nil {
		return ctx.Trigger(exchange.HolderEventWriteFailed, err)
	}

	return ctx.Trigger(exchange.HolderEventChunkSent, ck.Len())
}

func rejectProposal(ctx fsm.Context, s exnet.ExchangeStream, session exchange.HolderSession, reason exchange.RejectionReason, message string) error {
	if err := s.WriteMessage(exnet.NewReject(session.PayloadCID, reason, message)); err != nil {
		log.Warnf("session %s: writing rejection: %s", session.ID, err)
	}
	return ctx.Trigger(exchange.HolderEventRejected, reason, message)
}

// intersectIndices keeps the held indices the proposal asked for, in
// ascending position order. An empty request means everything held.
func intersectIndices(held []uint64, requested []uint64) []uint64 {
	if len(requested) == 0 {
		out := make([]uint64, len(held))
		copy(out, held)
		return out
	}
	want := make(map[uint64]struct{}, len(requested))
	for _, idx := range requested {
		want[idx] = struct{}{}
	}
	var out []uint64
	for _, idx := range held {
		if _, ok := want[idx]; ok {
			out = append(out, idx)
		}
	}
	return out
}

func validateAcceptance(session exchange.HolderSession) error {
	if len(session.Accepted) == 0 {
		return xerrors.New("acceptance names no chunks")
	}
	offered := make(map[uint64]struct{}, len(session.Offered))
	for _, idx := range session.Offered {
		offered[idx] = struct{}{}
	}
	seen := make(map[uint64]struct{}, len(session.Accepted))
	for _, idx := range session.Accepted {
		if _, ok := offered[idx]; !ok {
			return xerrors.Errorf("accepted index %d was never offered", idx)
		}
		if _, dup := seen[idx]; dup {
			return xerrors.Errorf("accepted index %d repeats", idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}
