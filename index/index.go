// Package index tracks locally held containers. Entry metadata lives in
// a statestore, chunk bytes live in a blockstore keyed by digest, and a
// byte budget is enforced by evicting whole entries, least recently
// verified first.
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/filecoin-project/go-statestore"
	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
)

var log = logging.Logger("storm_index")

// DSPrefix is the datastore namespace for index entries
var DSPrefix = "/storm/index"

const lockStripes = 32

// Index is the local container store
type Index struct {
	store    *statestore.StateStore
	bs       blockstore.Blockstore
	clock    clock.Clock
	maxBytes uint64

	// one lock per stripe, containers hash onto stripes
	stripes [lockStripes]sync.RWMutex

	capLk sync.Mutex
	used  uint64

	pinLk sync.Mutex
	pins  map[cid.Cid]int
}

// Option configures an Index
type Option func(*Index)

// MaxBytes bounds total stored chunk bytes. Zero means unbounded.
func MaxBytes(n uint64) Option {
	return func(ix *Index) {
		ix.maxBytes = n
	}
}

// WithClock substitutes the time source, for testing
func WithClock(c clock.Clock) Option {
	return func(ix *Index) {
		ix.clock = c
	}
}

// NewIndex creates an index over the given metadata and chunk stores
func NewIndex(ds datastore.Batching, bs blockstore.Blockstore, opts ...Option) (*Index, error) {
	ix := &Index{
		store: statestore.New(namespace.Wrap(ds, datastore.NewKey(DSPrefix))),
		bs:    bs,
		clock: clock.New(),
		pins:  map[cid.Cid]int{},
	}
	for _, opt := range opts {
		opt(ix)
	}

	entries, err := ix.ListEntries()
	if err != nil {
		return nil, xerrors.Errorf("reading stored entries: %w", err)
	}
	for _, e := range entries {
		ix.used += e.StoredBytes
	}
	return ix, nil
}

// lockFor maps a container onto its lock stripe. Digest tails are
// uniform for hashed cids.
func (ix *Index) lockFor(payloadCID cid.Cid) *sync.RWMutex {
	h := payloadCID.Hash()
	if len(h) == 0 {
		return &ix.stripes[0]
	}
	return &ix.stripes[uint(h[len(h)-1])%lockStripes]
}

// PutContainer registers full container metadata, including the digest
// of every chunk position
func (ix *Index) PutContainer(cont container.Container) error {
	if err := cont.Valid(); err != nil {
		return err
	}
	payloadCID, err := cont.ID()
	if err != nil {
		return err
	}

	lk := ix.lockFor(payloadCID)
	lk.Lock()
	defer lk.Unlock()

	now := ix.clock.Now().UnixNano()
	return ix.mutateEntry(payloadCID, func(e *Entry) error {
		if e.Header.Known() && e.Header.ChunkCount != cont.Header.ChunkCount {
			return xerrors.Errorf("container %s already registered with %d chunks, not %d", payloadCID, e.Header.ChunkCount, cont.Header.ChunkCount)
		}
		e.Header = cont.Header
		if len(e.Chunks) == 0 {
			e.Chunks = make([]ChunkRecord, len(cont.Chunks))
		}
		for i, d := range cont.Chunks {
			if e.Chunks[i].Digest.Defined() && e.Chunks[i].Digest != d {
				return ErrDigestMismatch
			}
			e.Chunks[i].Digest = d
		}
		if e.LastVerified == 0 {
			e.LastVerified = now
		}
		return nil
	})
}

// RegisterHeader registers chunk count and size metadata learned from a
// remote offer. Digests fill in as verified chunks arrive.
func (ix *Index) RegisterHeader(payloadCID cid.Cid, h container.Header) error {
	if !h.Known() {
		return xerrors.Errorf("header for %s declares no chunks", payloadCID)
	}
	if h.ChunkCount > chunk.MaxChunksPerContainer {
		return container.ErrTooManyChunks
	}

	lk := ix.lockFor(payloadCID)
	lk.Lock()
	defer lk.Unlock()

	now := ix.clock.Now().UnixNano()
	return ix.mutateEntry(payloadCID, func(e *Entry) error {
		if e.Header.Known() {
			if e.Header.ChunkCount != h.ChunkCount {
				return xerrors.Errorf("container %s already registered with %d chunks, not %d", payloadCID, e.Header.ChunkCount, h.ChunkCount)
			}
			return nil
		}
		e.Header = h
		e.Chunks = make([]ChunkRecord, h.ChunkCount)
		if e.LastVerified == 0 {
			e.LastVerified = now
		}
		return nil
	})
}

// Put verifies and stores one chunk. Identical duplicates report
// DuplicateIgnored, conflicting content fails with ErrDigestMismatch,
// and a full store evicts before failing with ErrCapacityExceeded.
func (ix *Index) Put(ctx context.Context, payloadCID cid.Cid, idx uint64, c chunk.Chunk) (PutResult, error) {
	if !c.Verify() {
		return 0, ErrDigestMismatch
	}

	res, err := ix.checkPut(payloadCID, idx, c)
	if err != nil || res == DuplicateIgnored {
		return res, err
	}

	need := c.Len()
	if ix.maxBytes > 0 {
		if err := ix.admit(ctx, payloadCID, need); err != nil {
			return 0, err
		}
	}

	res, err = ix.commitChunk(ctx, payloadCID, idx, c)
	if ix.maxBytes > 0 && (err != nil || res == DuplicateIgnored) {
		ix.capLk.Lock()
		ix.used -= need
		ix.capLk.Unlock()
	}
	return res, err
}

// checkPut validates a store against current entry state before any
// bytes are admitted
func (ix *Index) checkPut(payloadCID cid.Cid, idx uint64, c chunk.Chunk) (PutResult, error) {
	lk := ix.lockFor(payloadCID)
	lk.RLock()
	defer lk.RUnlock()

	e, err := ix.getEntry(payloadCID)
	if err != nil {
		if xerrors.Is(err, datastore.ErrNotFound) {
			return 0, ErrUnknownContainer
		}
		return 0, err
	}
	if !e.Header.Known() {
		return 0, ErrUnknownContainer
	}
	if idx >= e.Header.ChunkCount || idx >= uint64(len(e.Chunks)) {
		return 0, ErrIndexRange
	}
	rec := e.Chunks[idx]
	if rec.Digest.Defined() && rec.Digest != c.Digest() {
		return 0, ErrDigestMismatch
	}
	if rec.Held {
		return DuplicateIgnored, nil
	}
	return Accepted, nil
}

// commitChunk writes the chunk block and marks the record held
func (ix *Index) commitChunk(ctx context.Context, payloadCID cid.Cid, idx uint64, c chunk.Chunk) (PutResult, error) {
	lk := ix.lockFor(payloadCID)
	lk.Lock()
	defer lk.Unlock()

	blk, err := blocks.NewBlockWithCid(c.Bytes(), c.Digest().Cid())
	if err != nil {
		return 0, xerrors.Errorf("wrapping chunk block: %w", err)
	}
	if err := ix.bs.Put(ctx, blk); err != nil {
		return 0, xerrors.Errorf("storing chunk block: %w", err)
	}

	res := Accepted
	now := ix.clock.Now().UnixNano()
	err = ix.store.Get(payloadCID).Mutate(func(e *Entry) error {
		if idx >= uint64(len(e.Chunks)) {
			return ErrIndexRange
		}
		rec := &e.Chunks[idx]
		if rec.Digest.Defined() && rec.Digest != c.Digest() {
			return ErrDigestMismatch
		}
		if rec.Held {
			res = DuplicateIgnored
			return nil
		}
		rec.Digest = c.Digest()
		rec.Held = true
		rec.Size = c.Len()
		e.StoredBytes += c.Len()
		e.LastVerified = now
		return nil
	})
	if err != nil {
		return 0, err
	}
	return res, nil
}

// Get returns a held chunk. Absence is not an error.
func (ix *Index) Get(ctx context.Context, payloadCID cid.Cid, idx uint64) (chunk.Chunk, bool, error) {
	lk := ix.lockFor(payloadCID)
	lk.RLock()
	defer lk.RUnlock()

	e, err := ix.getEntry(payloadCID)
	if err != nil {
		if xerrors.Is(err, datastore.ErrNotFound) {
			return chunk.Chunk{}, false, nil
		}
		return chunk.Chunk{}, false, err
	}
	if idx >= uint64(len(e.Chunks)) || !e.Chunks[idx].Held {
		return chunk.Chunk{}, false, nil
	}

	rec := e.Chunks[idx]
	blk, err := ix.bs.Get(ctx, rec.Digest.Cid())
	if err != nil {
		return chunk.Chunk{}, false, xerrors.Errorf("held chunk %d of %s unreadable: %w", idx, payloadCID, err)
	}
	return chunk.FromParts(rec.Digest, blk.RawData()), true, nil
}

// HasComplete reports whether every chunk of the container is held
func (ix *Index) HasComplete(payloadCID cid.Cid) bool {
	lk := ix.lockFor(payloadCID)
	lk.RLock()
	defer lk.RUnlock()

	e, err := ix.getEntry(payloadCID)
	if err != nil {
		return false
	}
	return e.Complete()
}

// GetEntry returns the index record for one container
func (ix *Index) GetEntry(payloadCID cid.Cid) (Entry, error) {
	lk := ix.lockFor(payloadCID)
	lk.RLock()
	defer lk.RUnlock()

	e, err := ix.getEntry(payloadCID)
	if err != nil {
		if xerrors.Is(err, datastore.ErrNotFound) {
			return Entry{}, ErrUnknownContainer
		}
		return Entry{}, err
	}
	return e, nil
}

// ListEntries returns every index record
func (ix *Index) ListEntries() ([]Entry, error) {
	var entries []Entry
	if err := ix.store.List(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RecordHolder notes that a peer claims to hold a container
func (ix *Index) RecordHolder(payloadCID cid.Cid, p peer.ID) error {
	lk := ix.lockFor(payloadCID)
	lk.Lock()
	defer lk.Unlock()

	now := ix.clock.Now().UnixNano()
	return ix.mutateEntry(payloadCID, func(e *Entry) error {
		for i := range e.Holders {
			if e.Holders[i].Peer == p {
				e.Holders[i].LastSeen = now
				return nil
			}
		}
		e.Holders = append(e.Holders, HolderRecord{Peer: p, LastSeen: now})
		return nil
	})
}

// ForgetHolder drops a peer from a container's holder list
func (ix *Index) ForgetHolder(payloadCID cid.Cid, p peer.ID) error {
	lk := ix.lockFor(payloadCID)
	lk.Lock()
	defer lk.Unlock()

	err := ix.store.Get(payloadCID).Mutate(func(e *Entry) error {
		for i := range e.Holders {
			if e.Holders[i].Peer == p {
				e.Holders = append(e.Holders[:i], e.Holders[i+1:]...)
				return nil
			}
		}
		return nil
	})
	if err != nil && xerrors.Is(err, datastore.ErrNotFound) {
		return nil
	}
	return err
}

// DowngradeHolder counts a failure against a holder without removing it
func (ix *Index) DowngradeHolder(payloadCID cid.Cid, p peer.ID) error {
	lk := ix.lockFor(payloadCID)
	lk.Lock()
	defer lk.Unlock()

	err := ix.store.Get(payloadCID).Mutate(func(e *Entry) error {
		for i := range e.Holders {
			if e.Holders[i].Peer == p {
				e.Holders[i].Failures++
				return nil
			}
		}
		return nil
	})
	if err != nil && xerrors.Is(err, datastore.ErrNotFound) {
		return nil
	}
	return err
}

// KnownHolders returns holders of a container ordered best first, by
// fewest failures and then by most recent sighting
func (ix *Index) KnownHolders(payloadCID cid.Cid) []peer.ID {
	lk := ix.lockFor(payloadCID)
	lk.RLock()
	defer lk.RUnlock()

	e, err := ix.getEntry(payloadCID)
	if err != nil {
		return nil
	}

	holders := make([]HolderRecord, len(e.Holders))
	copy(holders, e.Holders)
	sort.SliceStable(holders, func(i, j int) bool {
		if holders[i].Failures != holders[j].Failures {
			return holders[i].Failures < holders[j].Failures
		}
		return holders[i].LastSeen > holders[j].LastSeen
	})

	peers := make([]peer.ID, 0, len(holders))
	for _, h := range holders {
		peers = append(peers, h.Peer)
	}
	return peers
}

// Pin protects a container from eviction while a session depends on it
func (ix *Index) Pin(payloadCID cid.Cid) {
	ix.pinLk.Lock()
	defer ix.pinLk.Unlock()
	ix.pins[payloadCID]++
}

// Unpin releases one pin reference
func (ix *Index) Unpin(payloadCID cid.Cid) {
	ix.pinLk.Lock()
	defer ix.pinLk.Unlock()
	if ix.pins[payloadCID] <= 1 {
		delete(ix.pins, payloadCID)
		return
	}
	ix.pins[payloadCID]--
}

func (ix *Index) pinned(payloadCID cid.Cid) bool {
	ix.pinLk.Lock()
	defer ix.pinLk.Unlock()
	return ix.pins[payloadCID] > 0
}

// admit reserves room for need bytes, evicting until it fits
func (ix *Index) admit(ctx context.Context, target cid.Cid, need uint64) error {
	ix.capLk.Lock()
	defer ix.capLk.Unlock()

	for ix.used+need > ix.maxBytes {
		freed, err := ix.evictOne(ctx, target)
		if err != nil {
			return err
		}
		ix.used -= freed
	}
	ix.used += need
	return nil
}

// evictOne removes the least recently verified unpinned entry. The
// target container is exempt so a store never evicts its own entry.
func (ix *Index) evictOne(ctx context.Context, target cid.Cid) (uint64, error) {
	entries, err := ix.ListEntries()
	if err != nil {
		return 0, err
	}

	var victim *Entry
	for i := range entries {
		e := &entries[i]
		if e.PayloadCID.Equals(target) || e.StoredBytes == 0 || ix.pinned(e.PayloadCID) {
			continue
		}
		if victim == nil || e.LastVerified < victim.LastVerified {
			victim = e
		}
	}
	if victim == nil {
		return 0, ErrCapacityExceeded
	}

	// digests other entries still hold stay in the blockstore
	retained := map[chunk.Digest]struct{}{}
	for i := range entries {
		if entries[i].PayloadCID.Equals(victim.PayloadCID) {
			continue
		}
		for _, rec := range entries[i].Chunks {
			if rec.Held {
				retained[rec.Digest] = struct{}{}
			}
		}
	}

	lk := ix.lockFor(victim.PayloadCID)
	lk.Lock()
	defer lk.Unlock()

	e, err := ix.getEntry(victim.PayloadCID)
	if err != nil {
		if xerrors.Is(err, datastore.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	log.Infof("evicting container %s, freeing %d bytes", victim.PayloadCID, e.StoredBytes)
	for _, rec := range e.Chunks {
		if !rec.Held {
			continue
		}
		if _, ok := retained[rec.Digest]; ok {
			continue
		}
		if err := ix.bs.DeleteBlock(ctx, rec.Digest.Cid()); err != nil {
			return 0, xerrors.Errorf("deleting chunk block: %w", err)
		}
	}
	if err := ix.store.Get(victim.PayloadCID).End(); err != nil {
		return 0, err
	}
	return e.StoredBytes, nil
}

func (ix *Index) getEntry(payloadCID cid.Cid) (Entry, error) {
	var out Entry
	if err := ix.store.Get(payloadCID).Get(&out); err != nil {
		return Entry{}, err
	}
	return out, nil
}

func (ix *Index) ensureEntry(payloadCID cid.Cid) error {
	_, err := ix.getEntry(payloadCID)
	if err == nil {
		return nil
	}
	return ix.store.Begin(payloadCID, &Entry{PayloadCID: payloadCID})
}

func (ix *Index) mutateEntry(payloadCID cid.Cid, mutator interface{}) error {
	if err := ix.ensureEntry(payloadCID); err != nil {
		return err
	}
	return ix.store.Get(payloadCID).Mutate(mutator)
}
