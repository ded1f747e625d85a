package network

import (
	"errors"

	"github.com/ipfs/go-cid"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/commitment"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
)

//go:generate cbor-gen-for Message Propose Offer Accept ChunkDelivery Reject Abort Announce

// CurrentMessageVersion is the envelope version this implementation
// speaks. Anything else is malformed.
const CurrentMessageVersion = uint64(1)

// ErrMalformedMessage indicates an envelope whose version is wrong or
// whose payload does not match its kind. It is fatal to the message,
// not to the connection.
var ErrMalformedMessage = errors.New("malformed exchange message")

// MessageKind tags which payload an envelope carries
type MessageKind uint64

const (
	// KindPropose asks a holder for chunks of a container
	KindPropose MessageKind = iota

	// KindOffer names the chunks a holder can supply
	KindOffer

	// KindAccept confirms an offer and starts the transfer
	KindAccept

	// KindDelivery carries one chunk and its membership proof
	KindDelivery

	// KindReject declines a proposal
	KindReject

	// KindAbort ends a session before completion
	KindAbort

	// KindAnnounce advertises a complete container, outside any session
	KindAnnounce
)

// MessageKinds maps message kinds to human readable names
var MessageKinds = map[MessageKind]string{
	KindPropose:  "Propose",
	KindOffer:    "Offer",
	KindAccept:   "Accept",
	KindDelivery: "ChunkDelivery",
	KindReject:   "Reject",
	KindAbort:    "Abort",
	KindAnnounce: "Announce",
}

// Message is the tagged envelope every exchange protocol message
// travels in. Exactly one payload pointer is non-nil and it matches
// Kind.
type Message struct {
	Version  uint64
	Kind     MessageKind
	Propose  *Propose
	Offer    *Offer
	Accept   *Accept
	Delivery *ChunkDelivery
	Reject   *Reject
	Abort    *Abort
	Announce *Announce
}

// MessageUndefined is an empty envelope
var MessageUndefined = Message{}

// Propose asks for the listed chunk positions. An empty list asks for
// the whole container.
type Propose struct {
	PayloadCID cid.Cid
	Indices    []uint64
}

// Offer answers a proposal with the positions the holder can supply
// and the container header so the requester can size the transfer
type Offer struct {
	PayloadCID cid.Cid
	Header     container.Header
	Indices    []uint64
}

// Accept confirms the offered positions the requester wants delivered
type Accept struct {
	PayloadCID cid.Cid
	Indices    []uint64
}

// ChunkDelivery carries one chunk's bytes plus the membership proof
// binding it to its position under the container id. Delivery size is
// bounded by the codec's byte array ceiling.
type ChunkDelivery struct {
	PayloadCID cid.Cid
	Index      uint64
	Data       []byte
	Proof      commitment.Proof
}

// Reject declines a proposal with a machine readable reason
type Reject struct {
	PayloadCID cid.Cid
	Reason     uint64
	Message    string
}

// Abort ends a session early in either direction
type Abort struct {
	PayloadCID cid.Cid
	Message    string
}

// Announce advertises that the sender holds a complete container
type Announce struct {
	PayloadCID cid.Cid
	Header     container.Header
}

// NewPropose builds a proposal envelope
func NewPropose(payloadCID cid.Cid, indices []uint64) Message {
	return Message{Version: CurrentMessageVersion, Kind: KindPropose, Propose: &Propose{PayloadCID: payloadCID, Indices: indices}}
}

// NewOffer builds an offer envelope
func NewOffer(payloadCID cid.Cid, header container.Header, indices []uint64) Message {
	return Message{Version: CurrentMessageVersion, Kind: KindOffer, Offer: &Offer{PayloadCID: payloadCID, Header: header, Indices: indices}}
}

// NewAccept builds an acceptance envelope
func NewAccept(payloadCID cid.Cid, indices []uint64) Message {
	return Message{Version: CurrentMessageVersion, Kind: KindAccept, Accept: &Accept{PayloadCID: payloadCID, Indices: indices}}
}

// NewDelivery builds a chunk delivery envelope
func NewDelivery(payloadCID cid.Cid, index uint64, data []byte, proof commitment.Proof) Message {
	return Message{Version: CurrentMessageVersion, Kind: KindDelivery, Delivery: &ChunkDelivery{PayloadCID: payloadCID, Index: index, Data: data, Proof: proof}}
}

// NewReject builds a rejection envelope
func NewReject(payloadCID cid.Cid, reason exchange.RejectionReason, message string) Message {
	return Message{Version: CurrentMessageVersion, Kind: KindReject, Reject: &Reject{PayloadCID: payloadCID, Reason: uint64(reason), Message: message}}
}

// NewAbort builds an abort envelope
func NewAbort(payloadCID cid.Cid, message string) Message {
	return Message{Version: CurrentMessageVersion, Kind: KindAbort, Abort: &Abort{PayloadCID: payloadCID, Message: message}}
}

// NewAnnounce builds an announcement envelope
func NewAnnounce(payloadCID cid.Cid, header container.Header) Message {
	return Message{Version: CurrentMessageVersion, Kind: KindAnnounce, Announce: &Announce{PayloadCID: payloadCID, Header: header}}
}

// Validate checks the envelope's closed-enumeration shape
func (m Message) Validate() error {
	if m.Version != CurrentMessageVersion {
		return xerrors.Errorf("%w: version %d", ErrMalformedMessage, m.Version)
	}

	set := 0
	for _, p := range []bool{
		m.Propose != nil, m.Offer != nil, m.Accept != nil, m.Delivery != nil,
		m.Reject != nil, m.Abort != nil, m.Announce != nil,
	} {
		if p {
			set++
		}
	}
	if set != 1 {
		return xerrors.Errorf("%w: %d payloads set", ErrMalformedMessage, set)
	}

	var ok bool
	switch m.Kind {
	case KindPropose:
		ok = m.Propose != nil
	case KindOffer:
		ok = m.Offer != nil
	case KindAccept:
		ok = m.Accept != nil
	case KindDelivery:
		ok = m.Delivery != nil
	case KindReject:
		ok = m.Reject != nil
	case KindAbort:
		ok = m.Abort != nil
	case KindAnnounce:
		ok = m.Announce != nil
	default:
		return xerrors.Errorf("%w: unknown kind %d", ErrMalformedMessage, m.Kind)
	}
	if !ok {
		return xerrors.Errorf("%w: payload does not match kind %s", ErrMalformedMessage, MessageKinds[m.Kind])
	}
	return nil
}
