// Package container groups an ordered chunk sequence into one logical
// object addressed by a commitment over its chunk digests.
package container

import (
	"errors"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/commitment"
)

//go:generate cbor-gen-for Header Container

// CurrentVersion is the container format version this implementation produces
const CurrentVersion = uint64(1)

// ErrEmptyContainer indicates a container built over zero chunks
var ErrEmptyContainer = errors.New("container requires at least one chunk")

// ErrTooManyChunks indicates a container above the protocol chunk count ceiling
var ErrTooManyChunks = errors.New("container exceeds maximum chunk count")

// Header carries container-level metadata. The container id commits to
// the ordered digest list only; the header travels alongside it.
type Header struct {
	Version    uint64
	Mime       string
	Info       string
	Size       uint64
	ChunkCount uint64
}

// HeaderUndefined is a header with no information
var HeaderUndefined = Header{}

// Known reports whether the header has been learned. A valid container
// never has zero chunks, so a zero count marks an unknown header.
func (h Header) Known() bool {
	return h.ChunkCount != 0
}

// Container binds a header to the ordered chunk digest list
type Container struct {
	Header Header
	Chunks []chunk.Digest
}

// Build assembles a container over chunks and derives its id. The id is
// deterministic in the digest sequence and stable under no other input.
func Build(chunks []chunk.Chunk, mime string, info string) (Container, cid.Cid, error) {
	if len(chunks) == 0 {
		return Container{}, cid.Undef, ErrEmptyContainer
	}
	if uint64(len(chunks)) > chunk.MaxChunksPerContainer {
		return Container{}, cid.Undef, ErrTooManyChunks
	}

	digests := make([]chunk.Digest, 0, len(chunks))
	var size uint64
	for _, c := range chunks {
		digests = append(digests, c.Digest())
		size += c.Len()
	}

	root, err := commitment.Root(digests)
	if err != nil {
		return Container{}, cid.Undef, err
	}

	cont := Container{
		Header: Header{
			Version:    CurrentVersion,
			Mime:       mime,
			Info:       info,
			Size:       size,
			ChunkCount: uint64(len(digests)),
		},
		Chunks: digests,
	}
	return cont, IDForRoot(root), nil
}

// ID derives the container id from the chunk digest list
func (c Container) ID() (cid.Cid, error) {
	root, err := commitment.Root(c.Chunks)
	if err != nil {
		return cid.Undef, err
	}
	return IDForRoot(root), nil
}

// Valid checks header and digest list consistency
func (c Container) Valid() error {
	if len(c.Chunks) == 0 {
		return ErrEmptyContainer
	}
	if uint64(len(c.Chunks)) > chunk.MaxChunksPerContainer {
		return ErrTooManyChunks
	}
	if c.Header.ChunkCount != uint64(len(c.Chunks)) {
		return xerrors.Errorf("header declares %d chunks, digest list has %d", c.Header.ChunkCount, len(c.Chunks))
	}
	return nil
}

// Proof generates the membership proof for one position
func (c Container) Proof(index uint64) (commitment.Proof, error) {
	return commitment.Prove(c.Chunks, index)
}

// IDForRoot wraps a commitment root as a raw-codec CIDv1
func IDForRoot(root chunk.Digest) cid.Cid {
	return root.Cid()
}

// RootOfID recovers the commitment root from a container id
func RootOfID(id cid.Cid) (chunk.Digest, error) {
	if !id.Defined() {
		return chunk.DigestUndef, xerrors.New("undefined container id")
	}
	dec, err := mh.Decode(id.Hash())
	if err != nil {
		return chunk.DigestUndef, xerrors.Errorf("decoding container id: %w", err)
	}
	if dec.Code != mh.SHA2_256 || dec.Length != chunk.DigestSize {
		return chunk.DigestUndef, xerrors.New("container id does not carry a chunk digest")
	}
	return chunk.DigestFromBytes(dec.Digest)
}
