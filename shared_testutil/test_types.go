package shared_testutil

import (
	"math/rand"
	"testing"

	"github.com/ipfs/go-cid"
	blocksutil "github.com/ipfs/go-ipfs-blocksutil"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/libp2p/go-libp2p-core/test"
	"github.com/stretchr/testify/require"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
	exnet "github.com/storm-wg/go-storm/exchange/network"
)

var blockGenerator = blocksutil.NewBlockGenerator()

// GenerateCids produces n content identifiers
func GenerateCids(n int) []cid.Cid {
	cids := make([]cid.Cid, 0, n)
	for i := 0; i < n; i++ {
		c := blockGenerator.Next().Cid()
		cids = append(cids, c)
	}
	return cids
}

// RandomBytes returns a byte array of the given size with random values
func RandomBytes(n int64) []byte {
	randBytes := make([]byte, n)
	rand.Read(randBytes)
	return randBytes
}

// MakeTestChunks generates n chunks of the given size with random contents
func MakeTestChunks(t *testing.T, n int, size int64) []chunk.Chunk {
	chunks := make([]chunk.Chunk, 0, n)
	for i := 0; i < n; i++ {
		c, err := chunk.New(RandomBytes(size))
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
	return chunks
}

// MakeTestContainer builds a container over n random chunks of the given
// size, returning the container, its payload cid, and the chunks
func MakeTestContainer(t *testing.T, n int, size int64) (container.Container, cid.Cid, []chunk.Chunk) {
	chunks := MakeTestChunks(t, n, size)
	cont, payloadCID, err := container.Build(chunks, "application/octet-stream", "test container")
	require.NoError(t, err)
	return cont, payloadCID, chunks
}

// MakeTestHeader generates a container header with all fields set
func MakeTestHeader() container.Header {
	return container.Header{
		Version:    container.CurrentVersion,
		Mime:       "application/octet-stream",
		Info:       "test container",
		Size:       rand.Uint64(),
		ChunkCount: uint64(rand.Intn(64) + 1),
	}
}

// MakeTestProposeMessage generates a proposal that can be sent over the
// network to a holder
func MakeTestProposeMessage() exnet.Message {
	return exnet.NewPropose(GenerateCids(1)[0], []uint64{0, 1, 2})
}

// MakeTestOfferMessage generates an offer answering a proposal
func MakeTestOfferMessage() exnet.Message {
	return exnet.NewOffer(GenerateCids(1)[0], MakeTestHeader(), []uint64{0, 1, 2})
}

// MakeTestAcceptMessage generates an acceptance of an offer
func MakeTestAcceptMessage() exnet.Message {
	return exnet.NewAccept(GenerateCids(1)[0], []uint64{0, 1})
}

// MakeTestDeliveryMessage generates a chunk delivery whose proof verifies
// against its payload cid
func MakeTestDeliveryMessage(t *testing.T) exnet.Message {
	cont, payloadCID, chunks := MakeTestContainer(t, 4, 64)
	proof, err := cont.Proof(1)
	require.NoError(t, err)
	return exnet.NewDelivery(payloadCID, 1, chunks[1].Bytes(), proof)
}

// MakeTestRejectMessage generates a rejection of a proposal
func MakeTestRejectMessage() exnet.Message {
	return exnet.NewReject(GenerateCids(1)[0], exchange.RejectBusy, "transfer slots exhausted")
}

// MakeTestAbortMessage generates a session abort
func MakeTestAbortMessage() exnet.Message {
	return exnet.NewAbort(GenerateCids(1)[0], "session cancelled")
}

// MakeTestAnnounceMessage generates a complete container announcement
func MakeTestAnnounceMessage() exnet.Message {
	return exnet.NewAnnounce(GenerateCids(1)[0], MakeTestHeader())
}

// RequireGenerateTestPeers generates distinct peer ids for testing
func RequireGenerateTestPeers(t *testing.T, numPeers int) []peer.ID {
	peers := make([]peer.ID, numPeers)
	for i := range peers {
		pid, err := test.RandPeerID()
		require.NoError(t, err)
		peers[i] = pid
	}
	return peers
}
