package exchangeimpl_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	dss "github.com/ipfs/go-datastore/sync"
	bstore "github.com/ipfs/go-ipfs-blockstore"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/stretchr/testify/require"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/commitment"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
	exchangeimpl "github.com/storm-wg/go-storm/exchange/impl"
	exnet "github.com/storm-wg/go-storm/exchange/network"
	"github.com/storm-wg/go-storm/index"
	tut "github.com/storm-wg/go-storm/shared_testutil"
)

type exchangeHarness struct {
	testData  *tut.Libp2pTestData
	requester *exchangeimpl.Requester
	holder1   *exchangeimpl.Holder
	holder2   *exchangeimpl.Holder
}

// setupExchange wires a requester on the first mocknet node and a
// holder on both, all sharing the per-node index and datastore
func setupExchange(ctx context.Context, t *testing.T, cfg exchange.Config) *exchangeHarness {
	testData := tut.NewLibp2pTestData(ctx, t)

	nw1 := exnet.NewFromLibp2pHost(testData.Host1)
	nw2 := exnet.NewFromLibp2pHost(testData.Host2)

	requester, err := exchangeimpl.NewRequester(nw1, testData.Index1, testData.Ds1, cfg)
	require.NoError(t, err)
	holder1, err := exchangeimpl.NewHolder(nw1, testData.Index1, testData.Ds1, cfg)
	require.NoError(t, err)
	holder2, err := exchangeimpl.NewHolder(nw2, testData.Index2, testData.Ds2, cfg)
	require.NoError(t, err)

	require.NoError(t, requester.Start(ctx))
	require.NoError(t, holder1.Start(ctx))
	require.NoError(t, holder2.Start(ctx))
	t.Cleanup(func() {
		_ = requester.Stop()
		_ = holder1.Stop()
		_ = holder2.Stop()
	})

	return &exchangeHarness{
		testData:  testData,
		requester: requester,
		holder1:   holder1,
		holder2:   holder2,
	}
}

func TestRequesterCanFetchFromHolder(t *testing.T) {
	bgCtx := context.Background()
	h := setupExchange(bgCtx, t, exchange.DefaultConfig())

	payloadCID := h.testData.SeedContainer(t, tut.RandomBytes(10*1024), true)

	requesterDone := make(chan exchange.Session)
	unsubR := h.requester.SubscribeToEvents(func(_ exchange.RequesterEvent, state exchange.Session) {
		if state.Status == exchange.StatusCompleted {
			requesterDone <- state
		}
	})
	defer unsubR()

	holderDone := make(chan exchange.HolderSession)
	unsubH := h.holder2.SubscribeToEvents(func(_ exchange.HolderEvent, state exchange.HolderSession) {
		if state.Status == exchange.StatusCompleted {
			holderDone <- state
		}
	})
	defer unsubH()

	id, err := h.requester.Request(bgCtx, payloadCID, h.testData.Host2.ID(), nil)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(bgCtx, 10*time.Second)
	defer cancel()

	var session exchange.Session
	select {
	case <-ctxTimeout.Done():
		t.Fatal("transfer never completed on the requester")
	case session = <-requesterDone:
	}
	require.Equal(t, id, session.ID)
	require.Empty(t, session.MissingIndices())
	require.EqualValues(t, 10*1024, session.TotalReceived)
	require.EqualValues(t, 0, session.Retries)

	var holderSession exchange.HolderSession
	select {
	case <-ctxTimeout.Done():
		t.Fatal("transfer never completed on the holder")
	case holderSession = <-holderDone:
	}
	require.EqualValues(t, 10*1024, holderSession.TotalSent)
	require.EqualValues(t, 10, holderSession.Sent)

	h.testData.VerifyContainerStored(t, payloadCID, false)
}

func TestRequesterCanFetchSubset(t *testing.T) {
	bgCtx := context.Background()
	h := setupExchange(bgCtx, t, exchange.DefaultConfig())

	payloadCID := h.testData.SeedContainer(t, tut.RandomBytes(8*1024), true)

	requesterDone := make(chan exchange.Session)
	unsub := h.requester.SubscribeToEvents(func(_ exchange.RequesterEvent, state exchange.Session) {
		if state.Status == exchange.StatusCompleted {
			requesterDone <- state
		}
	})
	defer unsub()

	_, err := h.requester.Request(bgCtx, payloadCID, h.testData.Host2.ID(), []uint64{1, 3})
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(bgCtx, 10*time.Second)
	defer cancel()

	var session exchange.Session
	select {
	case <-ctxTimeout.Done():
		t.Fatal("transfer never completed")
	case session = <-requesterDone:
	}
	require.EqualValues(t, 2*1024, session.TotalReceived)

	entry, err := h.testData.Index1.GetEntry(payloadCID)
	require.NoError(t, err)
	require.EqualValues(t, 2, entry.HeldCount())
	require.False(t, entry.Complete())
}

func TestPartialTransferAutoRetries(t *testing.T) {
	bgCtx := context.Background()
	h := setupExchange(bgCtx, t, exchange.DefaultConfig())

	// the holder learns the full commitment but holds only the first
	// half of the chunks
	payload := tut.RandomBytes(8 * 1024)
	chunks, err := chunk.Split(payload, 1024)
	require.NoError(t, err)
	cont, payloadCID, err := container.Build(chunks, "application/octet-stream", "fixture")
	require.NoError(t, err)
	require.NoError(t, h.testData.Index2.PutContainer(cont))
	for i := 0; i < 4; i++ {
		_, err := h.testData.Index2.Put(bgCtx, payloadCID, uint64(i), chunks[i])
		require.NoError(t, err)
	}

	requesterDone := make(chan exchange.Session)
	unsub := h.requester.SubscribeToEvents(func(_ exchange.RequesterEvent, state exchange.Session) {
		if state.Status == exchange.StatusRejected {
			requesterDone <- state
		}
	})
	defer unsub()

	_, err = h.requester.Request(bgCtx, payloadCID, h.testData.Host2.ID(), nil)
	require.NoError(t, err)

	// the first attempt transfers the held half, then the automatic
	// retry re-proposes the missing half to the same holder, which has
	// nothing left to offer
	ctxTimeout, cancel := context.WithTimeout(bgCtx, 10*time.Second)
	defer cancel()

	var session exchange.Session
	select {
	case <-ctxTimeout.Done():
		t.Fatal("session never ended")
	case session = <-requesterDone:
	}
	require.EqualValues(t, 1, session.Retries)
	require.Equal(t, exchange.RejectChunksUnavailable, session.RejectionReason)

	// the verified half survives the failed session
	entry, err := h.testData.Index1.GetEntry(payloadCID)
	require.NoError(t, err)
	require.EqualValues(t, 4, entry.HeldCount())
}

func TestPartialTransferManualRetry(t *testing.T) {
	bgCtx := context.Background()
	cfg := exchange.DefaultConfig()
	cfg.AutoRetry = false
	h := setupExchange(bgCtx, t, cfg)

	payload := tut.RandomBytes(8 * 1024)
	chunks, err := chunk.Split(payload, 1024)
	require.NoError(t, err)
	cont, payloadCID, err := container.Build(chunks, "application/octet-stream", "fixture")
	require.NoError(t, err)
	require.NoError(t, h.testData.Index2.PutContainer(cont))
	for i := 0; i < 4; i++ {
		_, err := h.testData.Index2.Put(bgCtx, payloadCID, uint64(i), chunks[i])
		require.NoError(t, err)
	}

	partiallyFailed := make(chan exchange.Session)
	completed := make(chan exchange.Session)
	unsub := h.requester.SubscribeToEvents(func(_ exchange.RequesterEvent, state exchange.Session) {
		switch state.Status {
		case exchange.StatusPartiallyFailed:
			partiallyFailed <- state
		case exchange.StatusCompleted:
			completed <- state
		}
	})
	defer unsub()

	id, err := h.requester.Request(bgCtx, payloadCID, h.testData.Host2.ID(), nil)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(bgCtx, 10*time.Second)
	defer cancel()

	var session exchange.Session
	select {
	case <-ctxTimeout.Done():
		t.Fatal("session never partially failed")
	case session = <-partiallyFailed:
	}
	require.EqualValues(t, 4*1024, session.TotalReceived)
	require.ElementsMatch(t, []uint64{4, 5, 6, 7}, session.MissingIndices())

	// the holder picks up the rest of the container, then an operator
	// retries the session against it
	for i := 4; i < 8; i++ {
		_, err := h.testData.Index2.Put(bgCtx, payloadCID, uint64(i), chunks[i])
		require.NoError(t, err)
	}
	require.NoError(t, h.requester.Retry(bgCtx, id, h.testData.Host2.ID()))

	select {
	case <-ctxTimeout.Done():
		t.Fatal("retried session never completed")
	case session = <-completed:
	}
	require.EqualValues(t, 1, session.Retries)
	require.Empty(t, session.MissingIndices())

	h.testData.OrigBytes = payload
	h.testData.VerifyContainerStored(t, payloadCID, false)

	// a second retry is refused once the session completed
	require.Error(t, h.requester.Retry(bgCtx, id, h.testData.Host2.ID()))
}

func TestHolderAnnouncesContainer(t *testing.T) {
	bgCtx := context.Background()
	h := setupExchange(bgCtx, t, exchange.DefaultConfig())

	payloadCID := h.testData.SeedContainer(t, tut.RandomBytes(4*1024), true)

	type announce struct {
		payloadCID cid.Cid
		from       peer.ID
		header     container.Header
	}
	announced := make(chan announce)
	unsub := h.holder1.SubscribeToAnnounces(func(gotCID cid.Cid, from peer.ID, header container.Header) {
		announced <- announce{gotCID, from, header}
	})
	defer unsub()

	require.NoError(t, h.holder2.Announce(bgCtx, payloadCID, h.testData.Host1.ID()))

	ctxTimeout, cancel := context.WithTimeout(bgCtx, 10*time.Second)
	defer cancel()

	select {
	case <-ctxTimeout.Done():
		t.Fatal("announce never arrived")
	case a := <-announced:
		require.True(t, a.payloadCID.Equals(payloadCID))
		require.Equal(t, h.testData.Host2.ID(), a.from)
		require.EqualValues(t, 4, a.header.ChunkCount)
	}

	// the announcing peer is now a known holder, and the container can
	// be fetched from it
	holders := h.testData.Index1.KnownHolders(payloadCID)
	require.Equal(t, []peer.ID{h.testData.Host2.ID()}, holders)

	// a node that only knows the header refuses to announce
	require.Error(t, h.holder1.Announce(bgCtx, payloadCID, h.testData.Host2.ID()))

	requesterDone := make(chan exchange.Session)
	unsubR := h.requester.SubscribeToEvents(func(_ exchange.RequesterEvent, state exchange.Session) {
		if state.Status == exchange.StatusCompleted {
			requesterDone <- state
		}
	})
	defer unsubR()

	_, err := h.requester.Request(bgCtx, payloadCID, holders[0], nil)
	require.NoError(t, err)

	select {
	case <-ctxTimeout.Done():
		t.Fatal("transfer never completed")
	case <-requesterDone:
	}
	h.testData.VerifyContainerStored(t, payloadCID, false)
}

func TestRequestRejectsBadContainerID(t *testing.T) {
	bgCtx := context.Background()
	h := setupExchange(bgCtx, t, exchange.DefaultConfig())

	_, err := h.requester.Request(bgCtx, cid.Undef, h.testData.Host2.ID(), nil)
	require.Error(t, err)
}

func TestMonitorExpiresIdlePartialFailure(t *testing.T) {
	bgCtx := context.Background()
	cfg := exchange.DefaultConfig()
	cfg.AutoRetry = false
	mockClock := clock.NewMock()

	td := tut.NewLibp2pTestData(bgCtx, t)
	requester, err := exchangeimpl.NewRequester(exnet.NewFromLibp2pHost(td.Host1), td.Index1, td.Ds1, cfg,
		exchangeimpl.RequesterWithClock(mockClock))
	require.NoError(t, err)
	holder, err := exchangeimpl.NewHolder(exnet.NewFromLibp2pHost(td.Host2), td.Index2, td.Ds2, cfg)
	require.NoError(t, err)
	require.NoError(t, requester.Start(bgCtx))
	require.NoError(t, holder.Start(bgCtx))
	t.Cleanup(func() {
		_ = requester.Stop()
		_ = holder.Stop()
	})

	// the holder can only satisfy half the container, so the session
	// parks in StatusPartiallyFailed with no retry coming
	payload := tut.RandomBytes(4 * 1024)
	chunks, err := chunk.Split(payload, 1024)
	require.NoError(t, err)
	cont, payloadCID, err := container.Build(chunks, "application/octet-stream", "fixture")
	require.NoError(t, err)
	require.NoError(t, td.Index2.PutContainer(cont))
	for i := 0; i < 2; i++ {
		_, err := td.Index2.Put(bgCtx, payloadCID, uint64(i), chunks[i])
		require.NoError(t, err)
	}

	partiallyFailed := make(chan exchange.Session)
	aborted := make(chan exchange.Session)
	unsub := requester.SubscribeToEvents(func(_ exchange.RequesterEvent, state exchange.Session) {
		switch state.Status {
		case exchange.StatusPartiallyFailed:
			partiallyFailed <- state
		case exchange.StatusAborted:
			aborted <- state
		}
	})
	defer unsub()

	_, err = requester.Request(bgCtx, payloadCID, td.Host2.ID(), nil)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(bgCtx, 10*time.Second)
	defer cancel()

	select {
	case <-ctxTimeout.Done():
		t.Fatal("session never partially failed")
	case <-partiallyFailed:
	}

	// each advance runs one monitor sweep; the first sweep records the
	// parked session, a later one finds it unchanged past the timeout
	for {
		select {
		case session := <-aborted:
			require.Contains(t, session.Message, "idled past its timeout")
			return
		case <-ctxTimeout.Done():
			t.Fatal("monitor never expired the idle session")
		case <-time.After(10 * time.Millisecond):
			mockClock.Add(cfg.MonitorInterval)
		}
	}
}

// poisoningHolder speaks just enough of the exchange protocol to offer a
// whole container and then deliver bytes that cannot verify against the
// commitment
type poisoningHolder struct {
	t      *testing.T
	header container.Header
	proof  commitment.Proof
}

var _ exnet.ExchangeReceiver = &poisoningHolder{}

func (ph *poisoningHolder) HandleExchangeStream(s exnet.ExchangeStream) {
	defer s.Close()

	m, err := s.ReadMessage()
	require.NoError(ph.t, err)
	require.Equal(ph.t, exnet.KindPropose, m.Kind)

	indices := make([]uint64, ph.header.ChunkCount)
	for i := range indices {
		indices[i] = uint64(i)
	}
	require.NoError(ph.t, s.WriteMessage(exnet.NewOffer(m.Propose.PayloadCID, ph.header, indices)))

	m, err = s.ReadMessage()
	require.NoError(ph.t, err)
	require.Equal(ph.t, exnet.KindAccept, m.Kind)

	require.NoError(ph.t, s.WriteMessage(exnet.NewDelivery(m.Accept.PayloadCID, 0, []byte("poison"), ph.proof)))
}

func TestRetryAfterPoisonedDelivery(t *testing.T) {
	bgCtx := context.Background()
	td := tut.NewLibp2pTestData(bgCtx, t)

	cfg := exchange.DefaultConfig()
	requester, err := exchangeimpl.NewRequester(exnet.NewFromLibp2pHost(td.Host1), td.Index1, td.Ds1, cfg)
	require.NoError(t, err)
	require.NoError(t, requester.Start(bgCtx))
	t.Cleanup(func() { _ = requester.Stop() })

	// a third node holds the real bytes
	host3, err := td.MockNet.GenPeer()
	require.NoError(t, err)
	require.NoError(t, td.MockNet.LinkAll())

	ds3 := dss.MutexWrap(datastore.NewMapDatastore())
	bs3 := bstore.NewBlockstore(ds3)
	index3, err := index.NewIndex(ds3, bs3)
	require.NoError(t, err)

	payload := tut.RandomBytes(8 * 1024)
	chunks, err := chunk.Split(payload, 1024)
	require.NoError(t, err)
	cont, payloadCID, err := container.Build(chunks, "application/octet-stream", "fixture")
	require.NoError(t, err)
	require.NoError(t, index3.PutContainer(cont))
	for i, c := range chunks {
		_, err := index3.Put(bgCtx, payloadCID, uint64(i), c)
		require.NoError(t, err)
	}

	goodHolder, err := exchangeimpl.NewHolder(exnet.NewFromLibp2pHost(host3), index3, ds3, cfg)
	require.NoError(t, err)
	require.NoError(t, goodHolder.Start(bgCtx))
	t.Cleanup(func() { _ = goodHolder.Stop() })

	// the second node poisons the very first delivery
	proof, err := cont.Proof(0)
	require.NoError(t, err)
	poisonerNet := exnet.NewFromLibp2pHost(td.Host2)
	require.NoError(t, poisonerNet.SetDelegate(&poisoningHolder{t: t, header: cont.Header, proof: proof}))

	// the good holder is on record before the poisoned attempt fails
	require.NoError(t, td.Index1.RecordHolder(payloadCID, host3.ID()))

	completed := make(chan exchange.Session)
	unsub := requester.SubscribeToEvents(func(_ exchange.RequesterEvent, state exchange.Session) {
		if state.Status == exchange.StatusCompleted {
			completed <- state
		}
	})
	defer unsub()

	_, err = requester.Request(bgCtx, payloadCID, td.Host2.ID(), nil)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(bgCtx, 10*time.Second)
	defer cancel()

	var session exchange.Session
	select {
	case <-ctxTimeout.Done():
		t.Fatal("session never completed against the second holder")
	case session = <-completed:
	}
	require.EqualValues(t, 1, session.Retries)
	require.Equal(t, host3.ID(), session.Sender)
	require.Empty(t, session.MissingIndices())

	// the poisoning holder was downgraded, not forgotten
	holders := td.Index1.KnownHolders(payloadCID)
	require.Equal(t, []peer.ID{host3.ID(), td.Host2.ID()}, holders)

	td.OrigBytes = payload
	td.VerifyContainerStored(t, payloadCID, false)
}
