package network

import (
	"bufio"
	"io"
	"net"
	"time"

	cborutil "github.com/filecoin-project/go-cbor-util"
	"github.com/libp2p/go-libp2p-core/host"
	"github.com/libp2p/go-libp2p-core/network"
	"github.com/libp2p/go-libp2p-core/peer"
	"golang.org/x/xerrors"
)

type exchangeStream struct {
	p         peer.ID
	host      host.Host
	rw        network.Stream
	buffered  *bufio.Reader
	opTimeout time.Duration
}

var _ ExchangeStream = (*exchangeStream)(nil)

func (s *exchangeStream) ReadMessage() (Message, error) {
	var m Message

	if s.opTimeout > 0 {
		if err := s.rw.SetReadDeadline(time.Now().Add(s.opTimeout)); err != nil {
			log.Warn(err)
		}
	}
	if err := m.UnmarshalCBOR(s.buffered); err != nil {
		log.Warn(err)
		return MessageUndefined, err
	}
	if err := m.Validate(); err != nil {
		log.Warn(err)
		return MessageUndefined, err
	}
	return m, nil
}

func (s *exchangeStream) WriteMessage(m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if s.opTimeout > 0 {
		if err := s.rw.SetWriteDeadline(time.Now().Add(s.opTimeout)); err != nil {
			log.Warn(err)
		}
	}
	return cborutil.WriteCborRPC(s.rw, &m)
}

func (s *exchangeStream) RemotePeer() peer.ID {
	return s.p
}

func (s *exchangeStream) TagProtectedConnection(identifier string) {
	s.host.ConnManager().Protect(s.p, identifier)
}

func (s *exchangeStream) UntagProtectedConnection(identifier string) {
	s.host.ConnManager().Unprotect(s.p, identifier)
}

func (s *exchangeStream) Close() error {
	return s.rw.Close()
}

// IsTimeout reports whether err came from an expired read or write
// deadline
func IsTimeout(err error) bool {
	var nerr net.Error
	if xerrors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}

// IsClosed reports whether err means the remote side went away rather
// than sent garbage
func IsClosed(err error) bool {
	return xerrors.Is(err, io.EOF) || xerrors.Is(err, io.ErrUnexpectedEOF) || xerrors.Is(err, network.ErrReset)
}
