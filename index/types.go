package index

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p-core/peer"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
)

//go:generate cbor-gen-for Entry ChunkRecord HolderRecord

// PutResult is the outcome of storing a chunk that did not error
type PutResult uint64

const (
	// Accepted means the chunk verified and was stored
	Accepted PutResult = iota
	// DuplicateIgnored means an identical chunk was already held
	DuplicateIgnored
)

// ErrUnknownContainer indicates an operation on a container whose
// metadata has not been registered
var ErrUnknownContainer = errors.New("container not registered in index")

// ErrDigestMismatch indicates chunk content that disagrees with its
// claimed identity, or with a digest the index already recorded
var ErrDigestMismatch = errors.New("chunk digest mismatch")

// ErrIndexRange indicates a chunk position beyond the container's
// declared chunk count
var ErrIndexRange = errors.New("chunk index out of range")

// ErrCapacityExceeded indicates the store is full and nothing more can
// be evicted
var ErrCapacityExceeded = errors.New("store capacity exceeded")

// ChunkRecord tracks one chunk position within an entry. The digest is
// undefined until learned from container metadata or a verified store.
type ChunkRecord struct {
	Digest chunk.Digest
	Held   bool
	Size   uint64
}

// HolderRecord tracks a remote peer known to hold a container
type HolderRecord struct {
	Peer     peer.ID
	LastSeen int64
	Failures uint64
}

// Entry is the persisted index record for one container
type Entry struct {
	PayloadCID   cid.Cid
	Header       container.Header
	Chunks       []ChunkRecord
	Holders      []HolderRecord
	LastVerified int64
	StoredBytes  uint64
}

// HeldCount returns how many chunk positions are held locally
func (e Entry) HeldCount() uint64 {
	var n uint64
	for _, rec := range e.Chunks {
		if rec.Held {
			n++
		}
	}
	return n
}

// Complete reports whether metadata is known and every chunk is held
func (e Entry) Complete() bool {
	if !e.Header.Known() {
		return false
	}
	if uint64(len(e.Chunks)) != e.Header.ChunkCount {
		return false
	}
	for _, rec := range e.Chunks {
		if !rec.Held {
			return false
		}
	}
	return true
}
