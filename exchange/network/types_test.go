package network_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/storm-wg/go-storm/exchange/network"
	"github.com/storm-wg/go-storm/shared_testutil"
)

func TestMessageValidate(t *testing.T) {
	t.Run("valid envelopes", func(t *testing.T) {
		msgs := []network.Message{
			shared_testutil.MakeTestProposeMessage(),
			shared_testutil.MakeTestOfferMessage(),
			shared_testutil.MakeTestAcceptMessage(),
			shared_testutil.MakeTestDeliveryMessage(t),
			shared_testutil.MakeTestRejectMessage(),
			shared_testutil.MakeTestAbortMessage(),
			shared_testutil.MakeTestAnnounceMessage(),
		}
		for _, m := range msgs {
			require.NoError(t, m.Validate())
		}
	})

	t.Run("wrong version", func(t *testing.T) {
		m := shared_testutil.MakeTestProposeMessage()
		m.Version = 99
		assert.ErrorIs(t, m.Validate(), network.ErrMalformedMessage)
	})

	t.Run("no payload", func(t *testing.T) {
		m := network.Message{Version: network.CurrentMessageVersion, Kind: network.KindPropose}
		assert.ErrorIs(t, m.Validate(), network.ErrMalformedMessage)
	})

	t.Run("two payloads", func(t *testing.T) {
		m := shared_testutil.MakeTestProposeMessage()
		offer := shared_testutil.MakeTestOfferMessage()
		m.Offer = offer.Offer
		assert.ErrorIs(t, m.Validate(), network.ErrMalformedMessage)
	})

	t.Run("payload does not match kind", func(t *testing.T) {
		m := shared_testutil.MakeTestProposeMessage()
		m.Kind = network.KindAbort
		assert.ErrorIs(t, m.Validate(), network.ErrMalformedMessage)
	})

	t.Run("unknown kind", func(t *testing.T) {
		m := shared_testutil.MakeTestProposeMessage()
		m.Kind = network.MessageKind(42)
		assert.ErrorIs(t, m.Validate(), network.ErrMalformedMessage)
	})
}

func TestMessageWireRoundTrip(t *testing.T) {
	original := shared_testutil.MakeTestDeliveryMessage(t)

	var buf bytes.Buffer
	require.NoError(t, original.MarshalCBOR(&buf))

	var decoded network.Message
	require.NoError(t, decoded.UnmarshalCBOR(&buf))

	require.NoError(t, decoded.Validate())
	assert.Equal(t, original, decoded)
}

func TestOversizedDeliveryFailsDecode(t *testing.T) {
	valid := shared_testutil.MakeTestDeliveryMessage(t)

	t.Run("encode refuses", func(t *testing.T) {
		d := *valid.Delivery
		d.Data = make([]byte, cbg.ByteArrayMaxLen+1)
		var buf bytes.Buffer
		require.Error(t, d.MarshalCBOR(&buf))
	})

	t.Run("decode refuses", func(t *testing.T) {
		// a delivery whose data header declares more bytes than the
		// codec ceiling fails before any data is read
		var buf bytes.Buffer
		scratch := make([]byte, 9)
		require.NoError(t, buf.WriteByte(132)) // array(4)
		require.NoError(t, cbg.WriteCidBuf(scratch, &buf, valid.Delivery.PayloadCID))
		require.NoError(t, cbg.WriteMajorTypeHeaderBuf(scratch, &buf, cbg.MajUnsignedInt, 0))
		require.NoError(t, cbg.WriteMajorTypeHeaderBuf(scratch, &buf, cbg.MajByteString, cbg.ByteArrayMaxLen+1))

		var d network.ChunkDelivery
		err := d.UnmarshalCBOR(&buf)
		require.Error(t, err)
		require.Contains(t, err.Error(), "too large")
	})
}
