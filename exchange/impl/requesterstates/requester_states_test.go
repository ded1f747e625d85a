package requesterstates_test

import (
	"context"
	"errors"
	"testing"

	"github.com/filecoin-project/go-statemachine/fsm"
	fsmtest "github.com/filecoin-project/go-statemachine/fsm/testutil"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p-core/peer"
	"github.com/stretchr/testify/require"

	"github.com/storm-wg/go-storm/chunk"
	"github.com/storm-wg/go-storm/container"
	"github.com/storm-wg/go-storm/exchange"
	"github.com/storm-wg/go-storm/exchange/impl/requesterstates"
	exnet "github.com/storm-wg/go-storm/exchange/network"
	tut "github.com/storm-wg/go-storm/shared_testutil"
)

func TestOpenExchange(t *testing.T) {
	ctx := context.Background()
	eventProcessor, err := fsm.NewEventProcessor(exchange.Session{}, "Status", requesterstates.RequesterEvents)
	require.NoError(t, err)
	runOpenExchange := makeExecutor(ctx, eventProcessor, requesterstates.OpenExchange, exchange.StatusNew)
	peers := tut.RequireGenerateTestPeers(t, 1)
	payloadCID := tut.GenerateCids(1)[0]

	t.Run("it works", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{})
		session := testSession(payloadCID, peers[0])
		runOpenExchange(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusProposed, session.Status)
			require.Equal(t, []peer.ID{peers[0]}, env.openedStreams)
			require.Len(t, stream.Written, 1)
			m := stream.Written[0]
			require.Equal(t, exnet.KindPropose, m.Kind)
			require.Equal(t, payloadCID, m.Propose.PayloadCID)
			require.Equal(t, []uint64{1, 3}, m.Propose.Indices)
		})
	})

	t.Run("opening the stream fails", func(t *testing.T) {
		session := testSession(payloadCID, peers[0])
		params := envParams{openStreamErr: errors.New("no route to peer")}
		runOpenExchange(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "sending proposal to holder failed: no route to peer", session.Message)
		})
	})

	t.Run("writing the proposal fails", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Writer: tut.FailExchangeMessageWriter,
		})
		session := testSession(payloadCID, peers[0])
		runOpenExchange(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "sending proposal to holder failed: fail to write message", session.Message)
		})
	})
}

func TestAwaitOffer(t *testing.T) {
	ctx := context.Background()
	eventProcessor, err := fsm.NewEventProcessor(exchange.Session{}, "Status", requesterstates.RequesterEvents)
	require.NoError(t, err)
	runAwaitOffer := makeExecutor(ctx, eventProcessor, requesterstates.AwaitOffer, exchange.StatusProposed)
	peers := tut.RequireGenerateTestPeers(t, 1)
	cont, payloadCID, _ := tut.MakeTestContainer(t, 4, 512)

	t.Run("offer received", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewOffer(payloadCID, cont.Header, []uint64{1, 3})),
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusOffered, session.Status)
			require.Equal(t, cont.Header, session.Header)
			require.Len(t, session.Chunks, 2)
			for i, index := range []uint64{1, 3} {
				require.Equal(t, index, session.Chunks[i].Index)
				require.Equal(t, exchange.ChunkPending, session.Chunks[i].Status)
			}
		})
	})

	t.Run("proposal rejected", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewReject(payloadCID, exchange.RejectBusy, "too many transfers")),
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusRejected, session.Status)
			require.Equal(t, exchange.RejectBusy, session.RejectionReason)
			require.Equal(t, "holder rejected proposal: busy: too many transfers", session.Message)
		})
	})

	t.Run("holder aborts", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewAbort(payloadCID, "shutting down")),
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "holder aborted the session: shutting down", session.Message)
		})
	})

	t.Run("read times out", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.TimeoutExchangeMessageReader,
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "session timed out: read timed out", session.Message)
		})
	})

	t.Run("stream closed mid-read", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.QueuedExchangeMessageReader(nil),
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "reading from holder failed: EOF", session.Message)
		})
	})

	t.Run("stream lookup fails", func(t *testing.T) {
		session := testSession(payloadCID, peers[0])
		params := envParams{streamLookupErr: errors.New("no stream for session")}
		runAwaitOffer(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "holder connection error: no stream for session", session.Message)
		})
	})

	t.Run("offer for the wrong container is a violation", func(t *testing.T) {
		otherCID := tut.GenerateCids(1)[0]
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewOffer(otherCID, cont.Header, []uint64{1})),
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusProposed, session.Status)
			require.Equal(t, uint64(1), session.Violations)
		})
	})

	t.Run("unknown rejection reason is a violation", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewReject(payloadCID, exchange.RejectionReason(9), "???")),
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusProposed, session.Status)
			require.Equal(t, uint64(1), session.Violations)
		})
	})

	t.Run("unexpected message kind is a violation", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewPropose(payloadCID, []uint64{1})),
		})
		session := testSession(payloadCID, peers[0])
		runAwaitOffer(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusProposed, session.Status)
			require.Equal(t, uint64(1), session.Violations)
		})
	})

	t.Run("second violation ends the session", func(t *testing.T) {
		session := testSession(payloadCID, peers[0])
		session.Violations = 2
		runAwaitOffer(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "aborting session after repeated protocol violations", session.Message)
		})
	})
}

func TestEvaluateOffer(t *testing.T) {
	ctx := context.Background()
	eventProcessor, err := fsm.NewEventProcessor(exchange.Session{}, "Status", requesterstates.RequesterEvents)
	require.NoError(t, err)
	runEvaluateOffer := makeExecutor(ctx, eventProcessor, requesterstates.EvaluateOffer, exchange.StatusOffered)
	peers := tut.RequireGenerateTestPeers(t, 1)
	cont, payloadCID, _ := tut.MakeTestContainer(t, 4, 512)

	offeredSession := func() *exchange.Session {
		session := testSession(payloadCID, peers[0])
		session.Header = cont.Header
		session.Chunks = []exchange.ChunkState{
			{Index: 1, Status: exchange.ChunkPending},
			{Index: 3, Status: exchange.ChunkPending},
		}
		return session
	}

	t.Run("it works", func(t *testing.T) {
		session := offeredSession()
		runEvaluateOffer(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAccepted, session.Status)
			require.Equal(t, []container.Header{cont.Header}, env.registeredOffers)
			require.Equal(t, []peer.ID{peers[0]}, env.reservedPeers)
		})
	})

	t.Run("unsupported container version", func(t *testing.T) {
		session := offeredSession()
		session.Header.Version = 99
		runEvaluateOffer(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "offer failed validation: container version 99 is unsupported", session.Message)
		})
	})

	t.Run("empty offer", func(t *testing.T) {
		session := offeredSession()
		session.Chunks = nil
		runEvaluateOffer(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "offer failed validation: offer contains no chunks", session.Message)
		})
	})

	t.Run("offered index out of range", func(t *testing.T) {
		session := offeredSession()
		session.Chunks = append(session.Chunks, exchange.ChunkState{Index: 40, Status: exchange.ChunkPending})
		runEvaluateOffer(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "offer failed validation: offered index 40 is out of range for 4 chunks", session.Message)
		})
	})

	t.Run("offered index repeats", func(t *testing.T) {
		session := offeredSession()
		session.Chunks = append(session.Chunks, exchange.ChunkState{Index: 1, Status: exchange.ChunkPending})
		runEvaluateOffer(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "offer failed validation: offered index 1 repeats", session.Message)
		})
	})

	t.Run("offered index was never requested", func(t *testing.T) {
		session := offeredSession()
		session.RequestedIndices = []uint64{1}
		runEvaluateOffer(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "offer failed validation: offered index 3 was never requested", session.Message)
		})
	})

	t.Run("registering the offer fails", func(t *testing.T) {
		session := offeredSession()
		params := envParams{registerOfferErr: errors.New("header conflicts with index")}
		runEvaluateOffer(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "offer failed validation: header conflicts with index", session.Message)
		})
	})

	t.Run("transfer slot wait times out", func(t *testing.T) {
		session := offeredSession()
		params := envParams{reserveSlotErr: errors.New("context deadline exceeded")}
		runEvaluateOffer(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "session timed out: reserving transfer slot: context deadline exceeded", session.Message)
		})
	})
}

func TestSendAccept(t *testing.T) {
	ctx := context.Background()
	eventProcessor, err := fsm.NewEventProcessor(exchange.Session{}, "Status", requesterstates.RequesterEvents)
	require.NoError(t, err)
	runSendAccept := makeExecutor(ctx, eventProcessor, requesterstates.SendAccept, exchange.StatusAccepted)
	peers := tut.RequireGenerateTestPeers(t, 1)
	cont, payloadCID, _ := tut.MakeTestContainer(t, 4, 512)

	acceptedSession := func() *exchange.Session {
		session := testSession(payloadCID, peers[0])
		session.Header = cont.Header
		session.Chunks = []exchange.ChunkState{
			{Index: 1, Status: exchange.ChunkPending},
			{Index: 3, Status: exchange.ChunkPending},
		}
		return session
	}

	t.Run("it works", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{})
		session := acceptedSession()
		runSendAccept(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusTransferring, session.Status)
			require.Len(t, stream.Written, 1)
			m := stream.Written[0]
			require.Equal(t, exnet.KindAccept, m.Kind)
			require.Equal(t, []uint64{1, 3}, m.Accept.Indices)
			for _, cs := range session.Chunks {
				require.Equal(t, exchange.ChunkInFlight, cs.Status)
			}
		})
	})

	t.Run("writing the acceptance fails", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Writer: tut.FailExchangeMessageWriter,
		})
		session := acceptedSession()
		runSendAccept(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "sending acceptance to holder failed: fail to write message", session.Message)
		})
	})

	t.Run("stream lookup fails", func(t *testing.T) {
		session := acceptedSession()
		params := envParams{streamLookupErr: errors.New("no stream for session")}
		runSendAccept(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "holder connection error: no stream for session", session.Message)
		})
	})
}

func TestReceiveChunks(t *testing.T) {
	ctx := context.Background()
	eventProcessor, err := fsm.NewEventProcessor(exchange.Session{}, "Status", requesterstates.RequesterEvents)
	require.NoError(t, err)
	runReceiveChunks := makeExecutor(ctx, eventProcessor, requesterstates.ReceiveChunks, exchange.StatusTransferring)
	peers := tut.RequireGenerateTestPeers(t, 1)
	cont, payloadCID, chunks := tut.MakeTestContainer(t, 4, 512)

	transferringSession := func() *exchange.Session {
		session := testSession(payloadCID, peers[0])
		session.Header = cont.Header
		session.Chunks = []exchange.ChunkState{
			{Index: 1, Status: exchange.ChunkInFlight},
			{Index: 3, Status: exchange.ChunkInFlight},
		}
		return session
	}

	delivery := func(t *testing.T, index uint64) exnet.Message {
		proof, err := cont.Proof(index)
		require.NoError(t, err)
		return exnet.NewDelivery(payloadCID, index, chunks[index].Bytes(), proof)
	}

	t.Run("verifies and stores a delivery", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(delivery(t, 1)),
		})
		session := transferringSession()
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusTransferring, session.Status)
			require.Equal(t, exchange.ChunkVerified, session.Chunks[0].Status)
			require.Equal(t, chunks[1].Digest(), session.Chunks[0].Digest)
			require.Equal(t, chunks[1].Len(), session.TotalReceived)
			require.Len(t, env.storedChunks, 1)
			require.Equal(t, uint64(1), env.storedChunks[0].index)
		})
	})

	t.Run("all chunks verified completes the session", func(t *testing.T) {
		session := transferringSession()
		for i := range session.Chunks {
			session.Chunks[i].Status = exchange.ChunkVerified
		}
		runReceiveChunks(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusCompleted, session.Status)
			require.Empty(t, session.Message)
		})
	})

	t.Run("exhausted deliveries with failed chunks partially fail", func(t *testing.T) {
		session := transferringSession()
		session.Chunks[0].Status = exchange.ChunkVerified
		session.Chunks[1].Status = exchange.ChunkFailed
		runReceiveChunks(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "transfer ended with unverified chunks", session.Message)
		})
	})

	t.Run("bad proof marks the chunk failed", func(t *testing.T) {
		wrongProof, err := cont.Proof(3)
		require.NoError(t, err)
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewDelivery(payloadCID, 1, chunks[1].Bytes(), wrongProof)),
		})
		session := transferringSession()
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusTransferring, session.Status)
			require.Equal(t, exchange.ChunkFailed, session.Chunks[0].Status)
			require.Equal(t, "membership proof failed verification", session.Chunks[0].Error)
			require.Zero(t, session.Violations)
			require.Empty(t, env.storedChunks)
		})
	})

	t.Run("tampered data fails verification", func(t *testing.T) {
		proof, err := cont.Proof(1)
		require.NoError(t, err)
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewDelivery(payloadCID, 1, tut.RandomBytes(512), proof)),
		})
		session := transferringSession()
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.ChunkFailed, session.Chunks[0].Status)
			require.Empty(t, env.storedChunks)
		})
	})

	t.Run("delivery for an unaccepted chunk is a violation", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(delivery(t, 0)),
		})
		session := transferringSession()
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusTransferring, session.Status)
			require.Equal(t, uint64(1), session.Violations)
		})
	})

	t.Run("duplicate delivery is a violation", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(delivery(t, 1)),
		})
		session := transferringSession()
		session.Chunks[0].Status = exchange.ChunkVerified
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, uint64(1), session.Violations)
		})
	})

	t.Run("storing the chunk fails", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(delivery(t, 1)),
		})
		session := transferringSession()
		params := envParams{stream: stream, storeChunkErr: errors.New("disk full")}
		runReceiveChunks(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "storing verified chunk failed: disk full", session.Message)
		})
	})

	t.Run("holder aborts mid-transfer", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewAbort(payloadCID, "evicting container")),
		})
		session := transferringSession()
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
			require.Equal(t, "holder aborted the session: evicting container", session.Message)
		})
	})

	t.Run("read times out mid-transfer", func(t *testing.T) {
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.TimeoutExchangeMessageReader,
		})
		session := transferringSession()
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
		})
	})

	t.Run("delivery for the wrong container is a violation", func(t *testing.T) {
		otherCont, otherCID, otherChunks := tut.MakeTestContainer(t, 4, 512)
		proof, err := otherCont.Proof(1)
		require.NoError(t, err)
		stream := tut.NewTestExchangeStream(tut.TestExchangeStreamParams{
			Reader: tut.StubbedExchangeMessageReader(exnet.NewDelivery(otherCID, 1, otherChunks[1].Bytes(), proof)),
		})
		session := transferringSession()
		runReceiveChunks(t, session, envParams{stream: stream}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusTransferring, session.Status)
			require.Equal(t, uint64(1), session.Violations)
		})
	})
}

func TestHandlePartialFailure(t *testing.T) {
	ctx := context.Background()
	eventProcessor, err := fsm.NewEventProcessor(exchange.Session{}, "Status", requesterstates.RequesterEvents)
	require.NoError(t, err)
	runHandlePartialFailure := makeExecutor(ctx, eventProcessor, requesterstates.HandlePartialFailure, exchange.StatusPartiallyFailed)
	peers := tut.RequireGenerateTestPeers(t, 2)
	cont, payloadCID, _ := tut.MakeTestContainer(t, 4, 512)

	failedSession := func() *exchange.Session {
		session := testSession(payloadCID, peers[0])
		session.Header = cont.Header
		session.Chunks = []exchange.ChunkState{
			{Index: 1, Status: exchange.ChunkInFlight},
			{Index: 3, Status: exchange.ChunkVerified},
		}
		return session
	}

	t.Run("retries against another holder", func(t *testing.T) {
		session := failedSession()
		params := envParams{nextHolder: peers[1], hasNextHolder: true}
		runHandlePartialFailure(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusNew, session.Status)
			require.Equal(t, peers[1], session.Sender)
			require.Equal(t, uint64(1), session.Retries)
			require.Zero(t, session.Violations)
			require.Equal(t, []uint64{1}, session.RequestedIndices)
			require.Nil(t, session.Chunks)
			require.Empty(t, session.Message)
			require.Equal(t, []exchange.ExchangeID{session.ID}, env.closedStreams)
			require.Equal(t, []peer.ID{peers[0]}, env.downgraded)
		})
	})

	t.Run("retries against the same holder when no alternative exists", func(t *testing.T) {
		session := failedSession()
		runHandlePartialFailure(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusNew, session.Status)
			require.Equal(t, peers[0], session.Sender)
		})
	})

	t.Run("gives up once the retry budget is spent", func(t *testing.T) {
		session := failedSession()
		session.Retries = exchange.DefaultConfig().MaxRetries
		runHandlePartialFailure(t, session, envParams{}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusAborted, session.Status)
			require.Equal(t, "giving up after 5 retries", session.Message)
		})
	})

	t.Run("parks the session when auto retry is off", func(t *testing.T) {
		session := failedSession()
		cfg := exchange.DefaultConfig()
		cfg.AutoRetry = false
		runHandlePartialFailure(t, session, envParams{config: &cfg}, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusPartiallyFailed, session.Status)
		})
	})

	t.Run("close and downgrade errors do not stop the retry", func(t *testing.T) {
		session := failedSession()
		params := envParams{
			closeStreamErr:     errors.New("already closed"),
			downgradeHolderErr: errors.New("holder not recorded"),
			nextHolder:         peers[1],
			hasNextHolder:      true,
		}
		runHandlePartialFailure(t, session, params, func(session exchange.Session, env *fakeEnvironment) {
			require.Equal(t, exchange.StatusNew, session.Status)
			require.Equal(t, peers[1], session.Sender)
		})
	})
}

func testSession(payloadCID cid.Cid, sender peer.ID) *exchange.Session {
	return &exchange.Session{
		ID:               exchange.ExchangeID(5),
		PayloadCID:       payloadCID,
		Sender:           sender,
		RequestedIndices: []uint64{1, 3},
	}
}

type envParams struct {
	stream             exnet.ExchangeStream
	openStreamErr      error
	streamLookupErr    error
	closeStreamErr     error
	reserveSlotErr     error
	storeChunkErr      error
	registerOfferErr   error
	downgradeHolderErr error
	nextHolder         peer.ID
	hasNextHolder      bool
	config             *exchange.Config
}

type executor func(t *testing.T,
	session *exchange.Session,
	envParams envParams,
	sessionInspector func(session exchange.Session, env *fakeEnvironment))

func makeExecutor(ctx context.Context,
	eventProcessor fsm.EventProcessor,
	stateEntryFunc requesterstates.RequesterStateEntryFunc,
	initialState exchange.Status) executor {
	return func(t *testing.T,
		session *exchange.Session,
		envParams envParams,
		sessionInspector func(session exchange.Session, env *fakeEnvironment)) {
		session.Status = initialState

		config := exchange.DefaultConfig()
		if envParams.config != nil {
			config = *envParams.config
		}
		stream := envParams.stream
		if stream == nil {
			stream = tut.NewTestExchangeStream(tut.TestExchangeStreamParams{})
		}
		environment := &fakeEnvironment{
			stream:             stream,
			openStreamErr:      envParams.openStreamErr,
			streamLookupErr:    envParams.streamLookupErr,
			closeStreamErr:     envParams.closeStreamErr,
			reserveSlotErr:     envParams.reserveSlotErr,
			storeChunkErr:      envParams.storeChunkErr,
			registerOfferErr:   envParams.registerOfferErr,
			downgradeHolderErr: envParams.downgradeHolderErr,
			nextHolder:         envParams.nextHolder,
			hasNextHolder:      envParams.hasNextHolder,
			config:             config,
		}
		fsmCtx := fsmtest.NewTestContext(ctx, eventProcessor)
		err := stateEntryFunc(fsmCtx, environment, *session)
		require.NoError(t, err)
		fsmCtx.ReplayEvents(t, session)
		sessionInspector(*session, environment)
	}
}

type storedChunk struct {
	payloadCID cid.Cid
	index      uint64
	chunk      chunk.Chunk
}

type fakeEnvironment struct {
	stream             exnet.ExchangeStream
	openStreamErr      error
	streamLookupErr    error
	closeStreamErr     error
	reserveSlotErr     error
	storeChunkErr      error
	registerOfferErr   error
	downgradeHolderErr error
	nextHolder         peer.ID
	hasNextHolder      bool
	config             exchange.Config

	openedStreams    []peer.ID
	closedStreams    []exchange.ExchangeID
	reservedPeers    []peer.ID
	storedChunks     []storedChunk
	registeredOffers []container.Header
	downgraded       []peer.ID
}

func (fe *fakeEnvironment) OpenExchangeStream(ctx context.Context, id exchange.ExchangeID, p peer.ID) (exnet.ExchangeStream, error) {
	if fe.openStreamErr != nil {
		return nil, fe.openStreamErr
	}
	fe.openedStreams = append(fe.openedStreams, p)
	return fe.stream, nil
}

func (fe *fakeEnvironment) Stream(id exchange.ExchangeID) (exnet.ExchangeStream, error) {
	if fe.streamLookupErr != nil {
		return nil, fe.streamLookupErr
	}
	return fe.stream, nil
}

func (fe *fakeEnvironment) CloseStream(id exchange.ExchangeID) error {
	fe.closedStreams = append(fe.closedStreams, id)
	return fe.closeStreamErr
}

func (fe *fakeEnvironment) ReserveTransferSlot(ctx context.Context, id exchange.ExchangeID, p peer.ID) error {
	if fe.reserveSlotErr != nil {
		return fe.reserveSlotErr
	}
	fe.reservedPeers = append(fe.reservedPeers, p)
	return nil
}

func (fe *fakeEnvironment) StoreChunk(ctx context.Context, payloadCID cid.Cid, index uint64, c chunk.Chunk) error {
	if fe.storeChunkErr != nil {
		return fe.storeChunkErr
	}
	fe.storedChunks = append(fe.storedChunks, storedChunk{payloadCID, index, c})
	return nil
}

func (fe *fakeEnvironment) RegisterOffer(payloadCID cid.Cid, header container.Header) error {
	if fe.registerOfferErr != nil {
		return fe.registerOfferErr
	}
	fe.registeredOffers = append(fe.registeredOffers, header)
	return nil
}

func (fe *fakeEnvironment) DowngradeHolder(payloadCID cid.Cid, p peer.ID) error {
	fe.downgraded = append(fe.downgraded, p)
	return fe.downgradeHolderErr
}

func (fe *fakeEnvironment) NextHolder(payloadCID cid.Cid, exclude peer.ID) (peer.ID, bool) {
	return fe.nextHolder, fe.hasNextHolder
}

func (fe *fakeEnvironment) Config() exchange.Config {
	return fe.config
}

var _ requesterstates.RequesterEnvironment = &fakeEnvironment{}
