package network

import (
	"bufio"
	"context"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/jpillora/backoff"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/protocol"
	ma "github.com/multiformats/go-multiaddr"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/exchange"
)

var log = logging.Logger("storm_exchange_network")

const (
	defaultMaxStreamOpenAttempts = 5
	defaultMinAttemptDuration    = 1 * time.Second
	defaultMaxAttemptDuration    = 5 * time.Minute
	defaultBackoffFactor         = 5
	defaultOpTimeout             = 30 * time.Second
)

// Option is an option for configuring the libp2p exchange network
type Option func(*libp2pExchangeNetwork)

// RetryParameters changes the default parameters around stream reopening
func RetryParameters(minDuration time.Duration, maxDuration time.Duration, attempts float64, backoffFactor float64) Option {
	return func(impl *libp2pExchangeNetwork) {
		impl.maxStreamOpenAttempts = attempts
		impl.minAttemptDuration = minDuration
		impl.maxAttemptDuration = maxDuration
		impl.backoffFactor = backoffFactor
	}
}

// OpTimeout changes the read and write deadline applied to each message
// operation. Zero disables deadlines.
func OpTimeout(d time.Duration) Option {
	return func(impl *libp2pExchangeNetwork) {
		impl.opTimeout = d
	}
}

// SupportedExchangeProtocols sets what exchange protocols this network
// instance listens on
func SupportedExchangeProtocols(protocols []protocol.ID) Option {
	return func(impl *libp2pExchangeNetwork) {
		impl.exchangeProtocols = protocols
	}
}

// NewFromLibp2pHost builds an exchange network on top of libp2p
func NewFromLibp2pHost(h host.Host, options ...Option) ExchangeNetwork {
	impl := &libp2pExchangeNetwork{
		host:                  h,
		maxStreamOpenAttempts: defaultMaxStreamOpenAttempts,
		minAttemptDuration:    defaultMinAttemptDuration,
		maxAttemptDuration:    defaultMaxAttemptDuration,
		backoffFactor:         defaultBackoffFactor,
		opTimeout:             defaultOpTimeout,
		exchangeProtocols:     []protocol.ID{exchange.ExchangeProtocolID},
	}
	for _, option := range options {
		option(impl)
	}
	return impl
}

// libp2pExchangeNetwork transforms the libp2p host interface, which sends
// and receives NetMessage objects, into the exchange network interface.
type libp2pExchangeNetwork struct {
	host host.Host
	// inbound messages from the network are forwarded to the receiver
	receiver ExchangeReceiver

	maxStreamOpenAttempts float64
	minAttemptDuration    time.Duration
	maxAttemptDuration    time.Duration
	backoffFactor         float64
	opTimeout             time.Duration
	exchangeProtocols     []protocol.ID
}

func (impl *libp2pExchangeNetwork) NewExchangeStream(ctx context.Context, id peer.ID) (ExchangeStream, error) {
	s, err := impl.openStream(ctx, id, impl.exchangeProtocols)
	if err != nil {
		return nil, err
	}
	buffered := bufio.NewReaderSize(s, 16)
	return &exchangeStream{p: id, host: impl.host, rw: s, buffered: buffered, opTimeout: impl.opTimeout}, nil
}

func (impl *libp2pExchangeNetwork) openStream(ctx context.Context, id peer.ID, protocols []protocol.ID) (network.Stream, error) {
	b := &backoff.Backoff{
		Min:    impl.minAttemptDuration,
		Max:    impl.maxAttemptDuration,
		Factor: impl.backoffFactor,
		Jitter: true,
	}

	for {
		s, err := impl.host.NewStream(ctx, id, protocols...)
		if err == nil {
			return s, err
		}

		nAttempts := b.Attempt()
		if nAttempts == impl.maxStreamOpenAttempts {
			return nil, xerrors.Errorf("exhausted %d attempts but failed to open stream, err: %w", int(impl.maxStreamOpenAttempts), err)
		}

		d := b.Duration()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
}

func (impl *libp2pExchangeNetwork) SetDelegate(r ExchangeReceiver) error {
	impl.receiver = r
	for _, proto := range impl.exchangeProtocols {
		impl.host.SetStreamHandler(proto, impl.handleNewExchangeStream)
	}
	return nil
}

func (impl *libp2pExchangeNetwork) StopHandlingRequests() error {
	impl.receiver = nil
	for _, proto := range impl.exchangeProtocols {
		impl.host.RemoveStreamHandler(proto)
	}
	return nil
}

func (impl *libp2pExchangeNetwork) handleNewExchangeStream(s network.Stream) {
	reader := impl.getReaderOrReset(s)
	if reader != nil {
		es := &exchangeStream{p: s.Conn().RemotePeer(), host: impl.host, rw: s, buffered: reader, opTimeout: impl.opTimeout}
		impl.receiver.HandleExchangeStream(es)
	}
}

func (impl *libp2pExchangeNetwork) getReaderOrReset(s network.Stream) *bufio.Reader {
	if impl.receiver == nil {
		log.Warn("no receiver set")
		s.Reset() // nolint: errcheck,gosec
		return nil
	}
	return bufio.NewReaderSize(s, 16)
}

func (impl *libp2pExchangeNetwork) ID() peer.ID {
	return impl.host.ID()
}

func (impl *libp2pExchangeNetwork) AddAddrs(p peer.ID, addrs []ma.Multiaddr) {
	impl.host.Peerstore().AddAddrs(p, addrs, 8*time.Hour)
}
