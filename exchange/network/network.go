package network

import (
	"context"

	"github.com/libp2p/go-libp2p-core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// These are the required interfaces that must be implemented to send and
// receive messages for chunk exchange.

// TagPriority is the priority the connection manager uses for exchange
// related connections
const TagPriority = 100

// ExchangeStream is a stream for reading and writing exchange messages
type ExchangeStream interface {
	ReadMessage() (Message, error)
	WriteMessage(Message) error
	RemotePeer() peer.ID
	TagProtectedConnection(identifier string)
	UntagProtectedConnection(identifier string)
	Close() error
}

// ExchangeReceiver implements functions for receiving incoming exchange
// streams
type ExchangeReceiver interface {
	HandleExchangeStream(ExchangeStream)
}

// ExchangeNetwork is a network abstraction for the chunk exchange protocol
type ExchangeNetwork interface {
	NewExchangeStream(ctx context.Context, peer peer.ID) (ExchangeStream, error)

	SetDelegate(ExchangeReceiver) error

	StopHandlingRequests() error

	ID() peer.ID

	AddAddrs(peer.ID, []ma.Multiaddr)
}
