package requesterstates

import (
	"github.com/filecoin-project/go-statemachine/fsm"
	"github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
)

// RequesterEvents are the events that can happen in an exchange requester
var RequesterEvents = fsm.Events{
	// proposing
	fsm.Event(exchange.RequesterEventOpen).
		From(exchange.StatusNew).ToNoChange(),
	fsm.Event(exchange.RequesterEventWriteProposeFailed).
		From(exchange.StatusNew).To(exchange.StatusPartiallyFailed).
		Action(func(session *exchange.Session, err error) error {
			session.Message = xerrors.Errorf("sending proposal to holder failed: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventProposed).
		From(exchange.StatusNew).To(exchange.StatusProposed),

	// answering the proposal
	fsm.Event(exchange.RequesterEventOfferReceived).
		From(exchange.StatusProposed).To(exchange.StatusOffered).
		Action(func(session *exchange.Session, header container.Header, offered []uint64) error {
			session.Header = header
			session.Chunks = make([]exchange.ChunkState, 0, len(offered))
			for _, index := range offered {
				session.Chunks = append(session.Chunks, exchange.ChunkState{
					Index:  index,
					Status: exchange.ChunkPending,
				})
			}
			return nil
		}),
	fsm.Event(exchange.RequesterEventRejected).
		From(exchange.StatusProposed).To(exchange.StatusRejected).
		Action(func(session *exchange.Session, reason exchange.RejectionReason, message string) error {
			session.RejectionReason = reason
			session.Message = xerrors.Errorf("holder rejected proposal: %s: %s", exchange.RejectionReasons[reason], message).Error()
			return nil
		}),

	// evaluating the offer
	fsm.Event(exchange.RequesterEventOfferInvalid).
		From(exchange.StatusOffered).To(exchange.StatusAborted).
		Action(func(session *exchange.Session, err error) error {
			session.Message = xerrors.Errorf("offer failed validation: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventOfferAccepted).
		From(exchange.StatusOffered).To(exchange.StatusAccepted),

	// initiating the transfer
	fsm.Event(exchange.RequesterEventWriteAcceptFailed).
		From(exchange.StatusAccepted).To(exchange.StatusPartiallyFailed).
		Action(func(session *exchange.Session, err error) error {
			session.Message = xerrors.Errorf("sending acceptance to holder failed: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventTransferInitiated).
		From(exchange.StatusAccepted).To(exchange.StatusTransferring).
		Action(func(session *exchange.Session) error {
			for i := range session.Chunks {
				if session.Chunks[i].Status == exchange.ChunkPending {
					session.Chunks[i].Status = exchange.ChunkInFlight
				}
			}
			return nil
		}),

	// receiving deliveries
	fsm.Event(exchange.RequesterEventChunkVerified).
		From(exchange.StatusTransferring).ToNoChange().
		Action(func(session *exchange.Session, index uint64, digest chunk.Digest, size uint64) error {
			for i := range session.Chunks {
				if session.Chunks[i].Index == index {
					session.Chunks[i].Status = exchange.ChunkVerified
					session.Chunks[i].Digest = digest
					session.Chunks[i].Error = ""
				}
			}
			session.TotalReceived += size
			return nil
		}),
	fsm.Event(exchange.RequesterEventChunkFailed).
		From(exchange.StatusTransferring).ToNoChange().
		Action(func(session *exchange.Session, index uint64, message string) error {
			for i := range session.Chunks {
				if session.Chunks[i].Index == index {
					session.Chunks[i].Status = exchange.ChunkFailed
					session.Chunks[i].Error = message
				}
			}
			return nil
		}),
	fsm.Event(exchange.RequesterEventStoreFailed).
		From(exchange.StatusTransferring).To(exchange.StatusAborted).
		Action(func(session *exchange.Session, err error) error {
			session.Message = xerrors.Errorf("storing verified chunk failed: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventAllChunksVerified).
		From(exchange.StatusTransferring).To(exchange.StatusCompleted).
		Action(func(session *exchange.Session) error {
			session.Message = ""
			return nil
		}),
	fsm.Event(exchange.RequesterEventDeliveriesExhausted).
		From(exchange.StatusTransferring).To(exchange.StatusPartiallyFailed).
		Action(func(session *exchange.Session) error {
			session.Message = "transfer ended with unverified chunks"
			return nil
		}),

	// peer and stream failures
	fsm.Event(exchange.RequesterEventPeerAborted).
		FromMany(exchange.StatusProposed, exchange.StatusTransferring).To(exchange.StatusPartiallyFailed).
		Action(func(session *exchange.Session, message string) error {
			session.Message = xerrors.Errorf("holder aborted the session: %s", message).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventReadFailed).
		FromMany(exchange.StatusProposed, exchange.StatusTransferring).To(exchange.StatusPartiallyFailed).
		Action(func(session *exchange.Session, err error) error {
			session.Message = xerrors.Errorf("reading from holder failed: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventStreamLookupErrored).
		FromAny().To(exchange.StatusPartiallyFailed).
		Action(func(session *exchange.Session, err error) error {
			session.Message = xerrors.Errorf("holder connection error: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventProtocolViolation).
		FromMany(exchange.StatusProposed, exchange.StatusTransferring).ToNoChange().
		Action(func(session *exchange.Session, err error) error {
			session.Violations++
			session.Message = xerrors.Errorf("protocol violation: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventViolationLimit).
		FromMany(exchange.StatusProposed, exchange.StatusTransferring).To(exchange.StatusAborted).
		Action(func(session *exchange.Session) error {
			session.Message = "aborting session after repeated protocol violations"
			return nil
		}),

	// timeouts and retries
	fsm.Event(exchange.RequesterEventTimedOut).
		FromMany(
			exchange.StatusNew,
			exchange.StatusProposed,
			exchange.StatusOffered,
			exchange.StatusAccepted,
			exchange.StatusTransferring,
		).To(exchange.StatusPartiallyFailed).
		Action(func(session *exchange.Session, err error) error {
			session.Message = xerrors.Errorf("session timed out: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventRetry).
		From(exchange.StatusPartiallyFailed).To(exchange.StatusNew).
		Action(func(session *exchange.Session, p peer.ID) error {
			session.Sender = p
			session.Retries++
			session.Violations = 0
			session.RequestedIndices = session.MissingIndices()
			session.Chunks = nil
			session.Message = ""
			return nil
		}),
	fsm.Event(exchange.RequesterEventRetriesExhausted).
		From(exchange.StatusPartiallyFailed).To(exchange.StatusAborted).
		Action(func(session *exchange.Session) error {
			session.Message = xerrors.Errorf("giving up after %d retries", session.Retries).Error()
			return nil
		}),
	fsm.Event(exchange.RequesterEventExpired).
		From(exchange.StatusPartiallyFailed).To(exchange.StatusAborted).
		Action(func(session *exchange.Session) error {
			session.Message = "session idled past its timeout without a retry"
			return nil
		}),
	fsm.Event(exchange.RequesterEventCancelled).
		FromMany(
			exchange.StatusNew,
			exchange.StatusProposed,
			exchange.StatusOffered,
			exchange.StatusAccepted,
			exchange.StatusTransferring,
			exchange.StatusPartiallyFailed,
		).To(exchange.StatusAborted).
		Action(func(session *exchange.Session) error {
			session.Message = "session cancelled"
			return nil
		}),
}

// RequesterStateEntryFuncs are the handlers for different states in an exchange requester
var RequesterStateEntryFuncs = fsm.StateEntryFuncs{
	exchange.StatusNew:             OpenExchange,
	exchange.StatusProposed:        AwaitOffer,
	exchange.StatusOffered:         EvaluateOffer,
	exchange.StatusAccepted:        SendAccept,
	exchange.StatusTransferring:    ReceiveChunks,
	exchange.StatusPartiallyFailed: HandlePartialFailure,
}

// RequesterFinalityStates are the states in which an exchange requester session rests
var RequesterFinalityStates = []fsm.StateKey{
	exchange.StatusCompleted,
	exchange.StatusRejected,
	exchange.StatusAborted,
}
