// Package commitment derives container commitments from ordered chunk
// digest sequences and produces membership proofs verifiable against
// the commitment alone.
//
// The construction is a binary hash tree: adjacent digests combine
// pairwise left to right, an odd trailing node is carried up unpaired
// with no padding, and a single leaf is its own root. This ordering is
// consensus-critical: any change produces different container ids.
package commitment

import (
	"errors"

	"golang.org/x/xerrors"

	"github.com/storm-wg/go-storm/chunk"
)

// ErrNoLeaves indicates a commitment was requested over zero digests
var ErrNoLeaves = errors.New("commitment requires at least one leaf")

// Combine derives a parent digest from two children, in order
func Combine(a, b chunk.Digest) chunk.Digest {
	buf := make([]byte, 0, 2*chunk.DigestSize)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return chunk.Sum(buf)
}

// Root computes the commitment over an ordered digest sequence
func Root(leaves []chunk.Digest) (chunk.Digest, error) {
	if len(leaves) == 0 {
		return chunk.DigestUndef, ErrNoLeaves
	}
	level := make([]chunk.Digest, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0], nil
}

// Prove returns the membership proof for the leaf at index: the
// sibling digests along the path from the leaf to the root, bottom up
func Prove(leaves []chunk.Digest, index uint64) (Proof, error) {
	if len(leaves) == 0 {
		return Proof{}, ErrNoLeaves
	}
	if index >= uint64(len(leaves)) {
		return Proof{}, xerrors.Errorf("index %d out of range for %d leaves", index, len(leaves))
	}

	proof := Proof{Leaves: uint64(len(leaves))}
	level := make([]chunk.Digest, len(leaves))
	copy(level, leaves)
	idx := index
	for len(level) > 1 {
		if sib := idx ^ 1; sib < uint64(len(level)) {
			proof.Path = append(proof.Path, level[sib])
		}
		level = nextLevel(level)
		idx /= 2
	}
	return proof, nil
}

// Verify recomputes the path from a leaf digest and a membership proof
// and compares the result to the commitment root. It reports false,
// never an error, for a tampered digest, a malformed or truncated
// proof, or an out-of-range index. Callers treat false as "chunk
// rejected".
func Verify(root chunk.Digest, index uint64, leaf chunk.Digest, proof Proof) bool {
	if proof.Leaves == 0 || index >= proof.Leaves {
		return false
	}

	cur := leaf
	idx := index
	width := proof.Leaves
	used := 0
	for width > 1 {
		if idx^1 < width {
			if used >= len(proof.Path) {
				return false
			}
			sib := proof.Path[used]
			used++
			if idx%2 == 0 {
				cur = Combine(cur, sib)
			} else {
				cur = Combine(sib, cur)
			}
		}
		idx /= 2
		width = (width + 1) / 2
	}
	return used == len(proof.Path) && cur == root
}

func nextLevel(level []chunk.Digest) []chunk.Digest {
	next := make([]chunk.Digest, 0, (len(level)+1)/2)
	for i := 0; i+1 < len(level); i += 2 {
		next = append(next, Combine(level[i], level[i+1]))
	}
	if len(level)%2 == 1 {
		next = append(next, level[len(level)-1])
	}
	return next
}
