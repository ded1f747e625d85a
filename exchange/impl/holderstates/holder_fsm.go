package holderstates

import (
	"github.com/filecoin-project/go-statemachine/fsm"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
)

// HolderEvents are the events that can happen in an exchange holder
var HolderEvents = fsm.Events{
	// evaluating the proposal
	fsm.Event(exchange.HolderEventOpen).
		From(exchange.StatusNew).ToNoChange(),
	fsm.Event(exchange.HolderEventRejected).
		From(exchange.StatusNew).To(exchange.StatusRejected).
		Action(func(session *exchange.HolderSession, reason exchange.RejectionReason, message string) error {
			session.Message = xerrors.Errorf("proposal rejected: %s: %s", exchange.RejectionReasons[reason], message).Error()
			return nil
		}),
	fsm.Event(exchange.HolderEventProposalValidated).
		From(exchange.StatusNew).To(exchange.StatusProposed).
		Action(func(session *exchange.HolderSession, header container.Header, offered []uint64) error {
			session.Header = header
			session.Offered = offered
			return nil
		}),

	// offering
	fsm.Event(exchange.HolderEventWriteFailed).
		FromMany(exchange.StatusProposed, exchange.StatusTransferring).To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession, err error) error {
			session.Message = xerrors.Errorf("writing to requester failed: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.HolderEventOffered).
		From(exchange.StatusProposed).To(exchange.StatusOffered),

	// awaiting the acceptance
	fsm.Event(exchange.HolderEventAcceptReceived).
		From(exchange.StatusOffered).To(exchange.StatusAccepted).
		Action(func(session *exchange.HolderSession, accepted []uint64) error {
			session.Accepted = accepted
			return nil
		}),
	fsm.Event(exchange.HolderEventAcceptInvalid).
		From(exchange.StatusAccepted).To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession, err error) error {
			session.Message = xerrors.Errorf("acceptance contradicts the offer: %w", err).Error()
			return nil
		}),

	// peer and stream failures
	fsm.Event(exchange.HolderEventPeerAborted).
		From(exchange.StatusOffered).To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession, message string) error {
			session.Message = xerrors.Errorf("requester aborted the session: %s", message).Error()
			return nil
		}),
	fsm.Event(exchange.HolderEventReadFailed).
		From(exchange.StatusOffered).To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession, err error) error {
			session.Message = xerrors.Errorf("reading from requester failed: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.HolderEventStreamLookupErrored).
		FromAny().To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession, err error) error {
			session.Message = xerrors.Errorf("requester connection error: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.HolderEventProtocolViolation).
		From(exchange.StatusOffered).ToNoChange().
		Action(func(session *exchange.HolderSession, err error) error {
			session.Violations++
			session.Message = xerrors.Errorf("protocol violation: %w", err).Error()
			return nil
		}),
	fsm.Event(exchange.HolderEventViolationLimit).
		From(exchange.StatusOffered).To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession) error {
			session.Message = "aborting session after repeated protocol violations"
			return nil
		}),

	// sending deliveries
	fsm.Event(exchange.HolderEventBeginSending).
		From(exchange.StatusAccepted).To(exchange.StatusTransferring),
	fsm.Event(exchange.HolderEventChunkSent).
		From(exchange.StatusTransferring).ToNoChange().
		Action(func(session *exchange.HolderSession, size uint64) error {
			session.Sent++
			session.TotalSent += size
			return nil
		}),
	fsm.Event(exchange.HolderEventChunkUnavailable).
		From(exchange.StatusTransferring).To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession, index uint64, err error) error {
			session.Message = xerrors.Errorf("loading chunk %d failed: %w", index, err).Error()
			return nil
		}),
	fsm.Event(exchange.HolderEventAllChunksSent).
		From(exchange.StatusTransferring).To(exchange.StatusCompleted).
		Action(func(session *exchange.HolderSession) error {
			session.Message = ""
			return nil
		}),

	// timeouts
	fsm.Event(exchange.HolderEventTimedOut).
		FromMany(
			exchange.StatusNew,
			exchange.StatusProposed,
			exchange.StatusOffered,
			exchange.StatusAccepted,
			exchange.StatusTransferring,
		).To(exchange.StatusAborted).
		Action(func(session *exchange.HolderSession, err error) error {
			session.Message = xerrors.Errorf("session timed out: %w", err).Error()
			return nil
		}),
}

// HolderStateEntryFuncs are the handlers for different states in an exchange holder
var HolderStateEntryFuncs = fsm.StateEntryFuncs{
	exchange.StatusNew:          EvaluateProposal,
	exchange.StatusProposed:     SendOffer,
	exchange.StatusOffered:      AwaitAccept,
	exchange.StatusAccepted:     PrepareTransfer,
	exchange.StatusTransferring: SendChunks,
}

// HolderFinalityStates are the states in which an exchange holder session rests
var HolderFinalityStates = []fsm.StateKey{
	exchange.StatusCompleted,
	exchange.StatusRejected,
	exchange.StatusAborted,
}
