package requesterstates

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
)

var log = logging.Logger("storm_exchange_impl")

// RequesterEnvironment is an abstraction for interacting with
// dependencies from the exchange requester environment
type RequesterEnvironment interface {
	OpenExchangeStream(ctx context.Context, id exchange.ExchangeID, p peer.ID) (exnet.ExchangeStream, error)
	Stream(id exchange.ExchangeID) (exnet.ExchangeStream, error)
	CloseStream(id exchange.ExchangeID) error
	ReserveTransferSlot(ctx context.Context, id exchange.ExchangeID, p peer.ID) error
	StoreChunk(ctx context.Context, payloadCID cid.Cid, index uint64, c chunk.Chunk) error
	RegisterOffer(payloadCID cid.Cid, header container.Header) error
	DowngradeHolder(payloadCID cid.Cid, p peer.ID) error
	NextHolder(payloadCID cid.Cid, exclude peer.ID) (peer.ID, bool)
	Config() exchange.Config
}

// RequesterStateEntryFunc is the type for all state entry functions on an exchange requester
type RequesterStateEntryFunc func(ctx fsm.Context, environment RequesterEnvironment, session exchange.Session) error

// OpenExchange connects to the holder and proposes the session
func OpenExchange(ctx fsm.Context, environment RequesterEnvironment, session exchange.Session) error {
	s, err := environment.OpenExchangeStream(ctx.Context(), session.ID, session.Sender)
	if err != nil {
		return ctx.Trigger(exchange.RequesterEventWriteProposeFailed, err)
	}

	proposal := exnet.NewPropose(session.PayloadCID, session.PendingIndices())
	if err := s.WriteMessage(proposal); err != nil {
		return ctx.Trigger(exchange.RequesterEventWriteProposeFailed, err)
	}

	return ctx.Trigger(exchange.RequesterEventProposed)
}

// AwaitOffer reads the holder's answer to the proposal
func AwaitOffer(ctx fsm.Context, environment RequesterEnvironment, session exchange.Session) error {
	if session.Violations > 1 {
		return ctx.Trigger(exchange.RequesterEventViolationLimit)
	}

	s, err := environment.Stream(session.ID)
	if err != nil {
		return ctx.Trigger(exchange.RequesterEventStreamLookupErrored, err)
	}

	m, err := s.ReadMessage()
	if err != nil {
		if exnet.IsTimeout(err) {
			return ctx.Trigger(exchange.RequesterEventTimedOut, err)
		}
		if exnet.IsClosed(err) {
			return ctx.Trigger(exchange.RequesterEventReadFailed, err)
		}
		return ctx.Trigger(exchange.RequesterEventProtocolViolation, err)
	}

	switch m.Kind {
	case exnet.KindOffer:
		if !m.Offer.PayloadCID.Equals(session.PayloadCID) {
			return ctx.Trigger(exchange.RequesterEventProtocolViolation,
				xerrors.Errorf("offer names container %s, session is for %s", m.Offer.PayloadCID, session.PayloadCID))
		}
		return ctx.Trigger(exchange.RequesterEventOfferReceived, m.Offer.Header, m.Offer.Indices)
	case exnet.KindReject:
		reason := exchange.RejectionReason(m.Reject.Reason)
		if _, known := exchange.RejectionReasons[reason]; !known {
			return ctx.Trigger(exchange.RequesterEventProtocolViolation,
				xerrors.Errorf("unknown rejection reason %d", m.Reject.Reason))
		}
		return ctx.Trigger(exchange.RequesterEventRejected, reason, m.Reject.Message)
	case exnet.KindAbort:
		return ctx.Trigger(exchange.RequesterEventPeerAborted, m.Abort.Message)
	default:
		return ctx.Trigger(exchange.RequesterEventProtocolViolation,
			xerrors.Errorf("unexpected %s while waiting for an offer", exnet.MessageKinds[m.Kind]))
	}
}

// EvaluateOffer validates the holder's offer against the proposal and
// reserves the local capacity the transfer will need
func EvaluateOffer(ctx fsm.Context, environment RequesterEnvironment, session exchange.Session) error {
	if err := validateOffer(session); err != nil {
		return ctx.Trigger(exchange.RequesterEventOfferInvalid, err)
	}

	if err := environment.RegisterOffer(session.PayloadCID, session.Header); err != nil {
		return ctx.Trigger(exchange.RequesterEventOfferInvalid, err)
	}

	if err := environment.ReserveTransferSlot(ctx.Context(), session.ID, session.Sender); err != nil {
		return ctx.Trigger(exchange.RequesterEventTimedOut, xerrors.Errorf("reserving transfer slot: %w", err))
	}

	return ctx.Trigger(exchange.RequesterEventOfferAccepted)
}

// SendAccept tells the holder which offered chunks to deliver
func SendAccept(ctx fsm.Context, environment RequesterEnvironment, session exchange.Session) error {
	s, err := environment.Stream(session.ID)
	if err != nil {
		return ctx.Trigger(exchange.RequesterEventStreamLookupErrored, err)
	}

	accepted := make([]uint64, 0, len(session.Chunks))
	for _, cs := range session.Chunks {
		accepted = append(accepted, cs.Index)
	}

	if err := s.WriteMessage(exnet.NewAccept(session.PayloadCID, accepted)); err != nil {
		return ctx.Trigger(exchange.RequesterEventWriteAcceptFailed, err)
	}

	return ctx.Trigger(exchange.RequesterEventTransferInitiated)
}

// ReceiveChunks reads one delivery from the holder and verifies it
// against the container commitment before storing
func ReceiveChunks(ctx fsm.Context, environment RequesterEnvironment, session exchange.Session) error {
	if session.Violations > 1 {
		return ctx.Trigger(exchange.RequesterEventViolationLimit)
	}

	if len(session.MissingIndices()) == 0 {
		return ctx.Trigger(exchange.RequesterEventAllChunksVerified)
	}

	if session.Outstanding() == 0 {
		return ctx.Trigger(exchange.RequesterEventDeliveriesExhausted)
	}

	s, err := environment.Stream(session.ID)
	if err != nil {
		return ctx.Trigger(exchange.RequesterEventStreamLookupErrored, err)
	}

	m, err := s.ReadMessage()
	if err != nil {
		if exnet.IsTimeout(err) {
			return ctx.Trigger(exchange.RequesterEventTimedOut, err)
		}
		if exnet.IsClosed(err) {
			return ctx.Trigger(exchange.RequesterEventReadFailed, err)
		}
		return ctx.Trigger(exchange.RequesterEventProtocolViolation, err)
	}

	switch m.Kind {
	case exnet.KindDelivery:
		delivery := m.Delivery
		if !delivery.PayloadCID.Equals(session.PayloadCID) {
			return ctx.Trigger(exchange.RequesterEventProtocolViolation,
				xerrors.Errorf("delivery names container %s, session is for %s", delivery.PayloadCID, session.PayloadCID))
		}

		tracked := false
		for _, cs := range session.Chunks {
			if cs.Index != delivery.Index {
				continue
			}
			tracked = cs.Status == exchange.ChunkPending || cs.Status == exchange.ChunkInFlight
			break
		}
		if !tracked {
			return ctx.Trigger(exchange.RequesterEventProtocolViolation,
				xerrors.Errorf("chunk %d was not accepted or arrived twice", delivery.Index))
		}

		root, rootErr := container.RootOfID(session.PayloadCID)
		digest := chunk.Sum(delivery.Data)
		if rootErr != nil || delivery.Proof.Leaves != session.Header.ChunkCount ||
			!commitment.Verify(root, delivery.Index, digest, delivery.Proof) {
			return ctx.Trigger(exchange.RequesterEventChunkFailed, delivery.Index, "membership proof failed verification")
		}

		ck := chunk.FromParts(digest, delivery.Data)
		if err := environment.StoreChunk(ctx.Context(), session.PayloadCID, delivery.Index, ck); err != nil {
			return ctx.Trigger(exchange.RequesterEventStoreFailed, err)
		}

		return ctx.Trigger(exchange.RequesterEventChunkVerified, delivery.Index, digest, uint64(len(delivery.Data)))
	case exnet.KindAbort:
		return ctx.Trigger(exchange.RequesterEventPeerAborted, m.Abort.Message)
	default:
		return ctx.Trigger(exchange.RequesterEventProtocolViolation,
			xerrors.Errorf("unexpected %s while waiting for a delivery", exnet.MessageKinds[m.Kind]))
	}
}

// HandlePartialFailure releases the failed holder and lines up the next
// attempt for whatever the session is still missing
func HandlePartialFailure(ctx fsm.Context, environment RequesterEnvironment, session exchange.Session) error {
	if err := environment.CloseStream(session.ID); err != nil {
		log.Warnf("session %s: closing stream: %s", session.ID, err)
	}

	if err := environment.DowngradeHolder(session.PayloadCID, session.Sender); err != nil {
		log.Warnf("session %s: downgrading holder %s: %s", session.ID, session.Sender, err)
	}

	cfg := environment.Config()
	if session.Retries >= cfg.MaxRetries {
		return ctx.Trigger(exchange.RequesterEventRetriesExhausted)
	}

	if !cfg.AutoRetry {
		return nil
	}

	next, ok := environment.NextHolder(session.PayloadCID, session.Sender)
	if !ok {
		next = session.Sender
	}
	return ctx.Trigger(exchange.RequesterEventRetry, next)
}

func validateOffer(session exchange.Session) error {
	header := session.Header
	if !header.Known() {
		return xerrors.New("offer carries no container header")
	}
	if header.Version != container.CurrentVersion {
		return xerrors.Errorf("container version %d is unsupported", header.Version)
	}
	if header.ChunkCount > chunk.MaxChunksPerContainer {
		return xerrors.Errorf("header declares %d chunks, above the protocol ceiling", header.ChunkCount)
	}
	if len(session.Chunks) == 0 {
		return xerrors.New("offer contains no chunks")
	}

	requested := make(map[uint64]struct{}, len(session.RequestedIndices))
	for _, index := range session.RequestedIndices {
		requested[index] = struct{}{}
	}
	seen := make(map[uint64]struct{}, len(session.Chunks))
	for _, cs := range session.Chunks {
		if cs.Index >= header.ChunkCount {
			return xerrors.Errorf("offered index %d is out of range for %d chunks", cs.Index, header.ChunkCount)
		}
		if _, dup := seen[cs.Index]; dup {
			return xerrors.Errorf("offered index %d repeats", cs.Index)
		}
		seen[cs.Index] = struct{}{}
		if len(requested) > 0 {
			if _, ok := requested[cs.Index]; !ok {
				return xerrors.Errorf("offered index %d was never requested", cs.Index)
			}
		}
	}
	return nil
}
