package chunk

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
	"golang.org/x/xerrors"
)

// DigestSize is the width in bytes of a chunk digest (sha2-256)
const DigestSize = 32

// MaxChunkSize is the protocol ceiling on a single chunk's payload
const MaxChunkSize = uint64(1 << 24)

// MaxChunksPerContainer is the protocol ceiling on the number of chunks
// in one container
const MaxChunksPerContainer = uint64(1 << 19)

// ErrTooLargeData indicates chunk data above MaxChunkSize
var ErrTooLargeData = errors.New("chunk data exceeds maximum chunk size")

// Digest is the fixed-width content hash identifying a chunk. It is
// produced only through Sum, never assembled by hand outside of
// deserialization paths.
type Digest [DigestSize]byte

// DigestUndef is the zero digest, used to mark unknown positions
var DigestUndef = Digest{}

// Sum computes the digest of data using the protocol hash function
func Sum(data []byte) Digest {
	h, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		panic(err) // sha2-256 is always registered
	}
	dec, err := mh.Decode(h)
	if err != nil {
		panic(err)
	}
	var d Digest
	copy(d[:], dec.Digest)
	return d
}

// DigestFromBytes validates and copies a raw digest
func DigestFromBytes(b []byte) (Digest, error) {
	if len(b) != DigestSize {
		return DigestUndef, xerrors.Errorf("invalid digest length %d, expected %d", len(b), DigestSize)
	}
	var d Digest
	copy(d[:], b)
	return d, nil
}

// Defined reports whether the digest holds a value
func (d Digest) Defined() bool {
	return d != DigestUndef
}

// Cid wraps the digest as a raw-codec CIDv1, the form under which
// chunk bytes are keyed in block storage
func (d Digest) Cid() cid.Cid {
	h, err := mh.Encode(d[:], mh.SHA2_256)
	if err != nil {
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, h)
}

// String renders the digest for logs and display. The wire protocol
// never uses this encoding.
func (d Digest) String() string {
	s, err := multibase.Encode(multibase.Base32, d[:])
	if err != nil {
		return "<invalid digest>"
	}
	return s
}

// Chunk is an immutable bounded byte sequence identified by its digest
type Chunk struct {
	digest Digest
	data   []byte
}

// New creates a chunk from data, computing its digest
func New(data []byte) (Chunk, error) {
	if uint64(len(data)) > MaxChunkSize {
		return Chunk{}, ErrTooLargeData
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return Chunk{digest: Sum(buf), data: buf}, nil
}

// FromParts assembles a chunk from a claimed digest and data, as
// received from a remote peer. The result must pass Verify before it
// is trusted from any source.
func FromParts(d Digest, data []byte) Chunk {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Chunk{digest: d, data: buf}
}

// Digest returns the chunk's identity
func (c Chunk) Digest() Digest {
	return c.digest
}

// Bytes returns a copy of the chunk payload
func (c Chunk) Bytes() []byte {
	buf := make([]byte, len(c.data))
	copy(buf, c.data)
	return buf
}

// Len returns the payload length in bytes
func (c Chunk) Len() uint64 {
	return uint64(len(c.data))
}

// Verify recomputes the hash of the payload and compares it to the
// chunk's declared identity. A chunk failing this check is invalid and
// must never be stored.
func (c Chunk) Verify() bool {
	return Sum(c.data) == c.digest
}
