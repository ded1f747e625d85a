package shared_testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	dss "github.com/ipfs/go-datastore/sync"
	bstore "github.com/ipfs/go-ipfs-blockstore"
	"github.com/libp2p/go-libp2p-core/host"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/require"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/index"
)

type Libp2pTestData struct {
	Ctx       context.Context
	Ds1       datastore.Batching
	Ds2       datastore.Batching
	Bs1       bstore.Blockstore
	Bs2       bstore.Blockstore
	Index1    *index.Index
	Index2    *index.Index
	Host1     host.Host
	Host2     host.Host
	OrigBytes []byte

	MockNet mocknet.Mocknet
}

func NewLibp2pTestData(ctx context.Context, t *testing.T) *Libp2pTestData {
	testData := &Libp2pTestData{}
	testData.Ctx = ctx

	var err error

	testData.Ds1 = dss.MutexWrap(datastore.NewMapDatastore())
	testData.Ds2 = dss.MutexWrap(datastore.NewMapDatastore())

	// make a blockstore and index for each node
	testData.Bs1 = bstore.NewBlockstore(testData.Ds1)
	testData.Bs2 = bstore.NewBlockstore(testData.Ds2)

	testData.Index1, err = index.NewIndex(testData.Ds1, testData.Bs1)
	require.NoError(t, err)
	testData.Index2, err = index.NewIndex(testData.Ds2, testData.Bs2)
	require.NoError(t, err)

	mn := mocknet.New()

	// setup network
	testData.Host1, err = mn.GenPeer()
	require.NoError(t, err)

	testData.Host2, err = mn.GenPeer()
	require.NoError(t, err)

	err = mn.LinkAll()
	require.NoError(t, err)

	testData.MockNet = mn

	return testData
}

const fixtureChunkSize uint64 = 1 << 10

// SeedContainer splits payload into chunks and commits the complete
// container to one node's index. If useSecondNode is true the second node
// gets it, otherwise the first node does.
func (ltd *Libp2pTestData) SeedContainer(t *testing.T, payload []byte, useSecondNode bool) cid.Cid {
	idx := ltd.Index1
	if useSecondNode {
		idx = ltd.Index2
	}

	chunks, err := chunk.Split(payload, fixtureChunkSize)
	require.NoError(t, err)

	cont, payloadCID, err := container.Build(chunks, "application/octet-stream", "fixture")
	require.NoError(t, err)

	require.NoError(t, idx.PutContainer(cont))
	for i, c := range chunks {
		_, err := idx.Put(ltd.Ctx, payloadCID, uint64(i), c)
		require.NoError(t, err)
	}

	// save the original payload bytes
	ltd.OrigBytes = payload

	return payloadCID
}

// VerifyContainerStored checks that the container was fully received by one
// node, then reassembles it and compares against the seeded payload.
func (ltd *Libp2pTestData) VerifyContainerStored(t *testing.T, payloadCID cid.Cid, useSecondNode bool) {
	idx := ltd.Index1
	if useSecondNode {
		idx = ltd.Index2
	}

	entry, err := idx.GetEntry(payloadCID)
	require.NoError(t, err)
	require.True(t, entry.Complete())

	var buf bytes.Buffer
	for i := uint64(0); i < entry.Header.ChunkCount; i++ {
		c, ok, err := idx.Get(ltd.Ctx, payloadCID, i)
		require.NoError(t, err)
		require.True(t, ok)
		buf.Write(c.Bytes())
	}

	// verify original bytes match reassembled bytes!
	require.EqualValues(t, ltd.OrigBytes, buf.Bytes())
}
