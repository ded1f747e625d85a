package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
)

//go:generate cbor-gen-for ChunkState Session HolderSession

// ExchangeProtocolID is the libp2p protocol for chunk exchange sessions
const ExchangeProtocolID = "/storm/exchange/1.0.0"

// ExchangeID is a locally unique identifier for an exchange session
type ExchangeID uint64

func (e ExchangeID) String() string {
	return fmt.Sprint(uint64(e))
}

// Status is the lifecycle state of an exchange session. Requester and
// holder sessions move through the same status space.
type Status uint64

const (
	// StatusNew is a session that has not contacted its remote peer yet
	StatusNew Status = iota

	// StatusProposed means a proposal was sent and no offer has arrived
	StatusProposed

	// StatusOffered means an offer exists and is being evaluated
	StatusOffered

	// StatusAccepted means both sides agreed on an index set and the
	// transfer is about to begin
	StatusAccepted

	// StatusTransferring means chunk deliveries are in flight
	StatusTransferring

	// StatusCompleted means every agreed chunk was delivered and verified
	StatusCompleted

	// StatusPartiallyFailed means the transfer ended with verified gaps.
	// The session is not over, the missing set feeds a bounded retry.
	StatusPartiallyFailed

	// StatusRejected means the remote peer declined the proposal
	StatusRejected

	// StatusAborted means the session ended without completing
	StatusAborted
)

// Statuses maps session statuses to human readable names
var Statuses = map[Status]string{
	StatusNew:             "StatusNew",
	StatusProposed:        "StatusProposed",
	StatusOffered:         "StatusOffered",
	StatusAccepted:        "StatusAccepted",
	StatusTransferring:    "StatusTransferring",
	StatusCompleted:       "StatusCompleted",
	StatusPartiallyFailed: "StatusPartiallyFailed",
	StatusRejected:        "StatusRejected",
	StatusAborted:         "StatusAborted",
}

// IsTerminalStatus returns true for statuses no event can leave
func IsTerminalStatus(s Status) bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusAborted
}

// ChunkTransferStatus is the per-chunk progress within one session
type ChunkTransferStatus uint64

const (
	// ChunkPending is a chunk the session wants and has not seen
	ChunkPending ChunkTransferStatus = iota

	// ChunkInFlight is a chunk whose delivery was requested
	ChunkInFlight

	// ChunkReceived is a delivered chunk awaiting verification
	ChunkReceived

	// ChunkVerified is a chunk whose proof and digest both checked out
	ChunkVerified

	// ChunkFailed is a chunk whose delivery was rejected
	ChunkFailed
)

// ChunkTransferStatuses maps chunk transfer statuses to names
var ChunkTransferStatuses = map[ChunkTransferStatus]string{
	ChunkPending:  "ChunkPending",
	ChunkInFlight: "ChunkInFlight",
	ChunkReceived: "ChunkReceived",
	ChunkVerified: "ChunkVerified",
	ChunkFailed:   "ChunkFailed",
}

// ChunkState tracks one targeted chunk position in a session
type ChunkState struct {
	Index  uint64
	Status ChunkTransferStatus
	Digest chunk.Digest
	Error  string
}

// RejectionReason encodes why a holder declined a proposal
type RejectionReason uint64

const (
	// RejectUnknownContainer means the holder does not track the container
	RejectUnknownContainer RejectionReason = iota

	// RejectChunksUnavailable means none of the requested chunks are held
	RejectChunksUnavailable

	// RejectBusy means the holder cannot take another session right now
	RejectBusy
)

// RejectionReasons maps rejection reasons to human readable names
var RejectionReasons = map[RejectionReason]string{
	RejectUnknownContainer:  "unknown container",
	RejectChunksUnavailable: "chunks unavailable",
	RejectBusy:              "busy",
}

// Session is the persisted requester-side record of an exchange
type Session struct {
	ID               ExchangeID
	PayloadCID       cid.Cid
	Sender           peer.ID
	Header           container.Header
	RequestedIndices []uint64
	Chunks           []ChunkState
	Status           Status
	Message          string
	RejectionReason  RejectionReason
	Retries          uint64
	Violations       uint64
	TotalReceived    uint64
}

// TargetIndices returns the index set this session wants. An empty
// requested list means the whole container once the header is known.
func (s Session) TargetIndices() []uint64 {
	if len(s.RequestedIndices) > 0 {
		out := make([]uint64, len(s.RequestedIndices))
		copy(out, s.RequestedIndices)
		return out
	}
	if !s.Header.Known() {
		return nil
	}
	out := make([]uint64, 0, s.Header.ChunkCount)
	for i := uint64(0); i < s.Header.ChunkCount; i++ {
		out = append(out, i)
	}
	return out
}

// MissingIndices returns targeted indices not yet verified
func (s Session) MissingIndices() []uint64 {
	verified := map[uint64]struct{}{}
	for _, cs := range s.Chunks {
		if cs.Status == ChunkVerified {
			verified[cs.Index] = struct{}{}
		}
	}
	var missing []uint64
	for _, idx := range s.TargetIndices() {
		if _, ok := verified[idx]; !ok {
			missing = append(missing, idx)
		}
	}
	return missing
}

// PendingIndices returns the index set to put in a proposal. Before any
// header is known this is the requested list as given.
func (s Session) PendingIndices() []uint64 {
	if !s.Header.Known() {
		return s.RequestedIndices
	}
	return s.MissingIndices()
}

// Outstanding counts tracked chunks that are neither verified nor failed
func (s Session) Outstanding() uint64 {
	var n uint64
	for _, cs := range s.Chunks {
		if cs.Status != ChunkVerified && cs.Status != ChunkFailed {
			n++
		}
	}
	return n
}

// HolderSession is the persisted holder-side record of an exchange
type HolderSession struct {
	ID         ExchangeID
	PayloadCID cid.Cid
	Receiver   peer.ID
	Header     container.Header
	Requested  []uint64
	Offered    []uint64
	Accepted   []uint64
	Sent       uint64
	TotalSent  uint64
	Status     Status
	Message    string
	Violations uint64
}

// Config tunes session behavior for both sides of an exchange
type Config struct {
	// ChunkSize is the split size used when producing containers
	ChunkSize uint64
	// SessionTimeout bounds every wait a session performs: stream
	// reads and writes, slot waits, and idle time between events
	SessionTimeout time.Duration
	// MaxRetries bounds re-proposals after partial failures
	MaxRetries uint64
	// MaxTransfersPerPeer bounds concurrent transfers with one remote
	MaxTransfersPerPeer int
	// AutoRetry re-proposes missing chunks without operator action
	AutoRetry bool
	// MonitorInterval is the idle-session scan cadence
	MonitorInterval time.Duration
}

// DefaultConfig returns the tuning an unconfigured node runs with
func DefaultConfig() Config {
	return Config{
		ChunkSize:           1 << 20,
		SessionTimeout:      30 * time.Second,
		MaxRetries:          5,
		MaxTransfersPerPeer: 4,
		AutoRetry:           true,
		MonitorInterval:     5 * time.Second,
	}
}

// Unsubscribe removes a subscriber registered with SubscribeToEvents
type Unsubscribe func()

// RequesterSubscriber is a callback registered to listen for
// requester-side session events
type RequesterSubscriber func(event RequesterEvent, state Session)

// HolderSubscriber is a callback registered to listen for holder-side
// session events
type HolderSubscriber func(event HolderEvent, state HolderSession)

// AnnounceSubscriber is a callback registered to listen for container
// announcements from remote holders
type AnnounceSubscriber func(payloadCID cid.Cid, from peer.ID, header container.Header)

// Requester fetches containers from remote holders
type Requester interface {
	Start(ctx context.Context) error
	Stop() error

	// Request opens a session for a container, or a subset of its
	// chunks, against a known holder. Empty indices means everything.
	Request(ctx context.Context, payloadCID cid.Cid, from peer.ID, indices []uint64) (ExchangeID, error)

	// Retry re-proposes the missing chunks of a partially failed
	// session to the given peer
	Retry(ctx context.Context, id ExchangeID, from peer.ID) error

	// Cancel aborts a session, keeping any chunks already verified
	Cancel(ctx context.Context, id ExchangeID) error

	GetSession(id ExchangeID) (Session, error)
	ListSessions() ([]Session, error)
	SubscribeToEvents(subscriber RequesterSubscriber) Unsubscribe
}

// Holder serves locally held containers to remote requesters
type Holder interface {
	Start(ctx context.Context) error
	Stop() error

	// Announce tells a peer this node holds a complete container
	Announce(ctx context.Context, payloadCID cid.Cid, to peer.ID) error

	GetSession(id ExchangeID) (HolderSession, error)
	ListSessions() ([]HolderSession, error)
	SubscribeToEvents(subscriber HolderSubscriber) Unsubscribe
	SubscribeToAnnounces(subscriber AnnounceSubscriber) Unsubscribe
}
