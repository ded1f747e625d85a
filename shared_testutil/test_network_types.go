package shared_testutil

import (
	"errors"
	"io"

	"github.com/libp2p/go-libp2p-core/peer"

	exnet "github.com/storm-wg/go-storm/exchange/network"
)

// ExchangeMessageReader is a function to mock reading exchange messages
type ExchangeMessageReader func() (exnet.Message, error)

// ExchangeMessageWriter is a function to mock writing exchange messages
type ExchangeMessageWriter func(exnet.Message) error

// TestExchangeStream is an exchange stream with configurable behavior
// for testing. Successful writes are recorded in Written.
type TestExchangeStream struct {
	p      peer.ID
	reader ExchangeMessageReader
	writer ExchangeMessageWriter
	tagged map[string]struct{}

	Written    []exnet.Message
	CloseCount int
	CloseError error
}

var _ exnet.ExchangeStream = &TestExchangeStream{}

// TestExchangeStreamParams are parameters used to setup a TestExchangeStream
type TestExchangeStreamParams struct {
	PeerID peer.ID
	Reader ExchangeMessageReader
	Writer ExchangeMessageWriter
}

// NewTestExchangeStream returns a new TestExchangeStream with the
// behavior specified in params
func NewTestExchangeStream(params TestExchangeStreamParams) *TestExchangeStream {
	stream := TestExchangeStream{
		p:      params.PeerID,
		reader: TrivialExchangeMessageReader,
		writer: TrivialExchangeMessageWriter,
		tagged: make(map[string]struct{}),
	}
	if params.Reader != nil {
		stream.reader = params.Reader
	}
	if params.Writer != nil {
		stream.writer = params.Writer
	}
	return &stream
}

// ReadMessage calls the mocked message reader
func (tes *TestExchangeStream) ReadMessage() (exnet.Message, error) {
	return tes.reader()
}

// WriteMessage calls the mocked message writer and records what it accepted
func (tes *TestExchangeStream) WriteMessage(m exnet.Message) error {
	err := tes.writer(m)
	if err == nil {
		tes.Written = append(tes.Written, m)
	}
	return err
}

// RemotePeer returns the peer this stream was configured with
func (tes *TestExchangeStream) RemotePeer() peer.ID { return tes.p }

// TagProtectedConnection records a protection tag
func (tes *TestExchangeStream) TagProtectedConnection(identifier string) {
	tes.tagged[identifier] = struct{}{}
}

// UntagProtectedConnection removes a protection tag
func (tes *TestExchangeStream) UntagProtectedConnection(identifier string) {
	delete(tes.tagged, identifier)
}

// IsTagged reports whether the identifier currently protects the connection
func (tes *TestExchangeStream) IsTagged(identifier string) bool {
	_, ok := tes.tagged[identifier]
	return ok
}

// Close counts calls and returns the configured error
func (tes *TestExchangeStream) Close() error {
	tes.CloseCount++
	return tes.CloseError
}

// TrivialExchangeMessageReader succeeds trivially, returning an empty message
func TrivialExchangeMessageReader() (exnet.Message, error) {
	return exnet.Message{}, nil
}

// TrivialExchangeMessageWriter succeeds trivially, returning no error
func TrivialExchangeMessageWriter(exnet.Message) error {
	return nil
}

// StubbedExchangeMessageReader returns the given message when called
func StubbedExchangeMessageReader(m exnet.Message) ExchangeMessageReader {
	return func() (exnet.Message, error) {
		return m, nil
	}
}

// QueuedExchangeMessageReader returns the given messages in order, then
// fails like a closed stream
func QueuedExchangeMessageReader(ms []exnet.Message) ExchangeMessageReader {
	var next int
	return func() (exnet.Message, error) {
		if next >= len(ms) {
			return exnet.MessageUndefined, io.EOF
		}
		m := ms[next]
		next++
		return m, nil
	}
}

// FailExchangeMessageReader always fails
func FailExchangeMessageReader() (exnet.Message, error) {
	return exnet.MessageUndefined, errors.New("fail to read message")
}

// FailExchangeMessageWriter always fails
func FailExchangeMessageWriter(exnet.Message) error {
	return errors.New("fail to write message")
}

// TimeoutExchangeMessageReader fails with an error that reports itself
// as a timeout
func TimeoutExchangeMessageReader() (exnet.Message, error) {
	return exnet.MessageUndefined, timeoutError{}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "read timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
