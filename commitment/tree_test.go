package commitment_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/commitment"
)

func makeLeaves(n int) []chunk.Digest {
	leaves := make([]chunk.Digest, 0, n)
	for i := 0; i < n; i++ {
		leaves = append(leaves, chunk.Sum([]byte(fmt.Sprintf("leaf %d", i))))
	}
	return leaves
}

func TestRootDeterminism(t *testing.T) {
	for n := 1; n <= 9; n++ {
		leaves := makeLeaves(n)
		first, err := commitment.Root(leaves)
		require.NoError(t, err)
		second, err := commitment.Root(leaves)
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestRootSingleLeaf(t *testing.T) {
	leaves := makeLeaves(1)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	require.Equal(t, leaves[0], root)
}

func TestRootEmpty(t *testing.T) {
	_, err := commitment.Root(nil)
	require.ErrorIs(t, err, commitment.ErrNoLeaves)
}

func TestRootOrderSensitive(t *testing.T) {
	leaves := makeLeaves(5)
	original, err := commitment.Root(leaves)
	require.NoError(t, err)

	swapped := append([]chunk.Digest{}, leaves...)
	swapped[1], swapped[3] = swapped[3], swapped[1]
	reordered, err := commitment.Root(swapped)
	require.NoError(t, err)
	require.NotEqual(t, original, reordered)
}

func TestCombineIsOrderedHash(t *testing.T) {
	a := chunk.Sum([]byte("left"))
	b := chunk.Sum([]byte("right"))
	joined := append(append([]byte{}, a[:]...), b[:]...)
	require.Equal(t, chunk.Sum(joined), commitment.Combine(a, b))
	require.NotEqual(t, commitment.Combine(a, b), commitment.Combine(b, a))
}

func TestProveVerifyAllIndexes(t *testing.T) {
	for n := 1; n <= 9; n++ {
		leaves := makeLeaves(n)
		root, err := commitment.Root(leaves)
		require.NoError(t, err)

		for i := uint64(0); i < uint64(n); i++ {
			proof, err := commitment.Prove(leaves, i)
			require.NoError(t, err)
			require.Equal(t, uint64(n), proof.Leaves)
			require.True(t, commitment.Verify(root, i, leaves[i], proof),
				"index %d of %d leaves", i, n)
		}
	}
}

func TestVerifyRejectsTamperedLeaf(t *testing.T) {
	leaves := makeLeaves(6)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	proof, err := commitment.Prove(leaves, 2)
	require.NoError(t, err)

	tampered := leaves[2]
	tampered[0] ^= 0xff
	require.False(t, commitment.Verify(root, 2, tampered, proof))
}

func TestVerifyRejectsTamperedPath(t *testing.T) {
	leaves := makeLeaves(6)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	proof, err := commitment.Prove(leaves, 2)
	require.NoError(t, err)

	proof.Path[0][5] ^= 0x01
	require.False(t, commitment.Verify(root, 2, leaves[2], proof))
}

func TestVerifyRejectsWrongIndex(t *testing.T) {
	leaves := makeLeaves(6)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	proof, err := commitment.Prove(leaves, 2)
	require.NoError(t, err)

	// proof for index 2 presented as proof for index 3
	require.False(t, commitment.Verify(root, 3, leaves[3], proof))
}

func TestVerifyRejectsTruncatedProof(t *testing.T) {
	leaves := makeLeaves(8)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	proof, err := commitment.Prove(leaves, 0)
	require.NoError(t, err)

	proof.Path = proof.Path[:len(proof.Path)-1]
	require.False(t, commitment.Verify(root, 0, leaves[0], proof))
}

func TestVerifyRejectsOverlongProof(t *testing.T) {
	leaves := makeLeaves(8)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	proof, err := commitment.Prove(leaves, 0)
	require.NoError(t, err)

	proof.Path = append(proof.Path, chunk.Sum([]byte("extra")))
	require.False(t, commitment.Verify(root, 0, leaves[0], proof))
}

func TestVerifyRejectsIndexOutOfRange(t *testing.T) {
	leaves := makeLeaves(4)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	proof, err := commitment.Prove(leaves, 1)
	require.NoError(t, err)

	require.False(t, commitment.Verify(root, 4, leaves[1], proof))
	require.False(t, commitment.Verify(root, 1<<40, leaves[1], proof))
}

func TestVerifyRejectsForgedLeafCount(t *testing.T) {
	leaves := makeLeaves(2)
	root, err := commitment.Root(leaves)
	require.NoError(t, err)
	proof, err := commitment.Prove(leaves, 1)
	require.NoError(t, err)

	proof.Leaves = 3
	require.False(t, commitment.Verify(root, 1, leaves[1], proof))

	proof.Leaves = 0
	require.False(t, commitment.Verify(root, 1, leaves[1], proof))
}

func TestProveErrors(t *testing.T) {
	_, err := commitment.Prove(nil, 0)
	require.ErrorIs(t, err, commitment.ErrNoLeaves)

	leaves := makeLeaves(3)
	_, err = commitment.Prove(leaves, 3)
	require.Error(t, err)
}

func TestProofCborRoundTrip(t *testing.T) {
	leaves := makeLeaves(7)
	proof, err := commitment.Prove(leaves, 4)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, proof.MarshalCBOR(&buf))

	var back commitment.Proof
	require.NoError(t, back.UnmarshalCBOR(&buf))
	require.Equal(t, proof, back)
}
