package exchange

// RequesterEvent is an event in a requester session lifecycle
type RequesterEvent uint64

const (
	// RequesterEventOpen indicates a session was initiated
	RequesterEventOpen RequesterEvent = iota

	// RequesterEventWriteProposeFailed means the proposal could not be
	// delivered, the session falls back to retrying another holder
	RequesterEventWriteProposeFailed

	// RequesterEventProposed means the proposal was written
	RequesterEventProposed

	// RequesterEventOfferReceived means the holder answered with an offer
	RequesterEventOfferReceived

	// RequesterEventRejected means the holder declined the proposal
	RequesterEventRejected

	// RequesterEventPeerAborted means the remote peer gave up on the session
	RequesterEventPeerAborted

	// RequesterEventReadFailed means the stream failed mid-read
	RequesterEventReadFailed

	// RequesterEventStreamLookupErrored means the session has no open
	// stream, usually after a restart
	RequesterEventStreamLookupErrored

	// RequesterEventProtocolViolation means the peer sent something the
	// protocol does not allow here. Tolerated once, then fatal.
	RequesterEventProtocolViolation

	// RequesterEventViolationLimit means a second violation ended the session
	RequesterEventViolationLimit

	// RequesterEventOfferAccepted means the offer checked out and a
	// transfer slot was reserved
	RequesterEventOfferAccepted

	// RequesterEventOfferInvalid means the offer contradicts the
	// proposal or known container metadata
	RequesterEventOfferInvalid

	// RequesterEventWriteAcceptFailed means the acceptance could not be written
	RequesterEventWriteAcceptFailed

	// RequesterEventTransferInitiated means the acceptance was written
	// and deliveries are expected
	RequesterEventTransferInitiated

	// RequesterEventChunkVerified means a delivered chunk passed its
	// membership proof and digest check and was committed locally
	RequesterEventChunkVerified

	// RequesterEventChunkFailed means a delivered chunk failed
	// verification and was discarded
	RequesterEventChunkFailed

	// RequesterEventStoreFailed means a verified chunk could not be
	// committed to local storage
	RequesterEventStoreFailed

	// RequesterEventAllChunksVerified means every targeted chunk is verified
	RequesterEventAllChunksVerified

	// RequesterEventDeliveriesExhausted means the holder stopped sending
	// while targeted chunks are still missing
	RequesterEventDeliveriesExhausted

	// RequesterEventTimedOut means the session stalled inside its timeout
	RequesterEventTimedOut

	// RequesterEventRetry re-proposes the missing chunks to a holder
	RequesterEventRetry

	// RequesterEventRetriesExhausted means the retry budget is spent
	RequesterEventRetriesExhausted

	// RequesterEventExpired means a partially failed session idled past
	// its timeout without being retried
	RequesterEventExpired

	// RequesterEventCancelled means the local caller cancelled the session
	RequesterEventCancelled
)

// RequesterEvents maps requester event codes to names
var RequesterEvents = map[RequesterEvent]string{
	RequesterEventOpen:                "RequesterEventOpen",
	RequesterEventWriteProposeFailed:  "RequesterEventWriteProposeFailed",
	RequesterEventProposed:            "RequesterEventProposed",
	RequesterEventOfferReceived:       "RequesterEventOfferReceived",
	RequesterEventRejected:            "RequesterEventRejected",
	RequesterEventPeerAborted:         "RequesterEventPeerAborted",
	RequesterEventReadFailed:          "RequesterEventReadFailed",
	RequesterEventStreamLookupErrored: "RequesterEventStreamLookupErrored",
	RequesterEventProtocolViolation:   "RequesterEventProtocolViolation",
	RequesterEventViolationLimit:      "RequesterEventViolationLimit",
	RequesterEventOfferAccepted:       "RequesterEventOfferAccepted",
	RequesterEventOfferInvalid:        "RequesterEventOfferInvalid",
	RequesterEventWriteAcceptFailed:   "RequesterEventWriteAcceptFailed",
	RequesterEventTransferInitiated:   "RequesterEventTransferInitiated",
	RequesterEventChunkVerified:       "RequesterEventChunkVerified",
	RequesterEventChunkFailed:         "RequesterEventChunkFailed",
	RequesterEventStoreFailed:         "RequesterEventStoreFailed",
	RequesterEventAllChunksVerified:   "RequesterEventAllChunksVerified",
	RequesterEventDeliveriesExhausted: "RequesterEventDeliveriesExhausted",
	RequesterEventTimedOut:            "RequesterEventTimedOut",
	RequesterEventRetry:               "RequesterEventRetry",
	RequesterEventRetriesExhausted:    "RequesterEventRetriesExhausted",
	RequesterEventExpired:             "RequesterEventExpired",
	RequesterEventCancelled:           "RequesterEventCancelled",
}

// HolderEvent is an event in a holder session lifecycle
type HolderEvent uint64

const (
	// HolderEventOpen indicates a proposal arrived and a session was opened
	HolderEventOpen HolderEvent = iota

	// HolderEventProposalValidated means the index can supply at least
	// one requested chunk
	HolderEventProposalValidated

	// HolderEventRejected means the proposal was declined
	HolderEventRejected

	// HolderEventOffered means the offer was written
	HolderEventOffered

	// HolderEventWriteFailed means the stream failed mid-write
	HolderEventWriteFailed

	// HolderEventAcceptReceived means the requester accepted the offer
	HolderEventAcceptReceived

	// HolderEventAcceptInvalid means the acceptance contradicted the offer
	HolderEventAcceptInvalid

	// HolderEventPeerAborted means the requester gave up on the session
	HolderEventPeerAborted

	// HolderEventReadFailed means the stream failed mid-read
	HolderEventReadFailed

	// HolderEventStreamLookupErrored means the session has no open stream
	HolderEventStreamLookupErrored

	// HolderEventProtocolViolation means the peer sent something the
	// protocol does not allow here. Tolerated once, then fatal.
	HolderEventProtocolViolation

	// HolderEventViolationLimit means a second violation ended the session
	HolderEventViolationLimit

	// HolderEventBeginSending means the acceptance checked out and
	// deliveries can start
	HolderEventBeginSending

	// HolderEventChunkSent means one delivery was written
	HolderEventChunkSent

	// HolderEventChunkUnavailable means an accepted chunk could not be
	// loaded from the index
	HolderEventChunkUnavailable

	// HolderEventAllChunksSent means every accepted chunk was delivered
	HolderEventAllChunksSent

	// HolderEventTimedOut means the session stalled inside its timeout
	HolderEventTimedOut
)

// HolderEvents maps holder event codes to names
var HolderEvents = map[HolderEvent]string{
	HolderEventOpen:                "HolderEventOpen",
	HolderEventProposalValidated:   "HolderEventProposalValidated",
	HolderEventRejected:            "HolderEventRejected",
	HolderEventOffered:             "HolderEventOffered",
	HolderEventWriteFailed:         "HolderEventWriteFailed",
	HolderEventAcceptReceived:      "HolderEventAcceptReceived",
	HolderEventAcceptInvalid:       "HolderEventAcceptInvalid",
	HolderEventPeerAborted:         "HolderEventPeerAborted",
	HolderEventReadFailed:          "HolderEventReadFailed",
	HolderEventStreamLookupErrored: "HolderEventStreamLookupErrored",
	HolderEventProtocolViolation:   "HolderEventProtocolViolation",
	HolderEventViolationLimit:      "HolderEventViolationLimit",
	HolderEventBeginSending:        "HolderEventBeginSending",
	HolderEventChunkSent:           "HolderEventChunkSent",
	HolderEventChunkUnavailable:    "HolderEventChunkUnavailable",
	HolderEventAllChunksSent:       "HolderEventAllChunksSent",
	HolderEventTimedOut:            "HolderEventTimedOut",
}
