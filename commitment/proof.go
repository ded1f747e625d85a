package commitment

import (
	"github.com/storm-wg/go-storm/chunk"
)

//go:generate cbor-gen-for Proof

// Proof demonstrates that a digest occupies a specific position in a
// container. It carries the leaf count alongside the sibling path so
// that verification needs no out-of-band container metadata; sessions
// cross-check the count against the negotiated header.
type Proof struct {
	Leaves uint64
	Path   []chunk.Digest
}

// ProofUndefined is an empty proof
var ProofUndefined = Proof{}

// Defined reports whether the proof carries any content
func (p Proof) Defined() bool {
	return p.Leaves != 0
}
