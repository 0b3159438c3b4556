package codec

import (
	"testing"

	"github.com/kismetwireless/kismet-sub014/internal/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParse_RoundTrip(t *testing.T) {
	f := Frame{
		Sequence: 42,
		Command:  CmdOpenSource,
		Fields: []Field{
			{Name: "definition", Type: FieldString, Value: "pcapfile:source=/tmp/x.pcap"},
			{Name: "channel", Type: FieldU32, Value: uint32(6)},
			{Name: "payload", Type: FieldBytes, Value: []byte{1, 2, 3}},
		},
	}

	encoded := Encode(f)
	res, err := Parse(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), res.Consumed)
	assert.Equal(t, f.Sequence, res.Frame.Sequence)
	assert.Equal(t, f.Command, res.Frame.Command)

	def, ok := res.Frame.String("definition")
	require.True(t, ok)
	assert.Equal(t, "pcapfile:source=/tmp/x.pcap", def)

	ch, ok := res.Frame.U32("channel")
	require.True(t, ok)
	assert.EqualValues(t, 6, ch)
}

func TestParse_NeedMore(t *testing.T) {
	f := Frame{Sequence: 1, Command: CmdListInterfaces}
	encoded := Encode(f)

	res, err := Parse(encoded[:HeaderSize-1], 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Consumed)
	assert.Greater(t, res.NeedMore, 0)
}

func TestParse_BadMagic(t *testing.T) {
	f := Frame{Sequence: 1, Command: CmdListInterfaces}
	encoded := Encode(f)
	encoded[0] ^= 0xff

	_, err := Parse(encoded, 0)
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.KindFrame))
	assert.ErrorIs(t, err, kerrors.ErrInvalidFrame)
}

func TestParse_ChecksumMismatch(t *testing.T) {
	f := Frame{
		Sequence: 1,
		Command:  CmdConfigure,
		Fields:   []Field{{Name: "x", Type: FieldU8, Value: uint8(1)}},
	}
	encoded := Encode(f)
	encoded[len(encoded)-1] ^= 0xff // corrupt payload without touching checksum

	_, err := Parse(encoded, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrInvalidFrame)
}

func TestParse_FrameTooLarge(t *testing.T) {
	f := Frame{Sequence: 1, Command: CmdConfigure}
	encoded := Encode(f)

	_, err := Parse(encoded, HeaderSize-1)
	// dataLen is 0 here so it won't trip the too-large check; use a real
	// oversized payload instead.
	require.NoError(t, err)

	big := Frame{
		Sequence: 1,
		Command:  CmdConfigure,
		Fields:   []Field{{Name: "blob", Type: FieldBytes, Value: make([]byte, 1024)}},
	}
	bigEncoded := Encode(big)
	_, err = Parse(bigEncoded, 512)
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrFrameTooLarge)
}

func TestFrame_NestedSubAndPacket(t *testing.T) {
	inner := Frame{Sequence: 2, Command: EvtData}
	outer := Frame{
		Sequence: 1,
		Command:  CmdConfigure,
		Fields: []Field{
			{Name: "sub", Type: FieldSub, Value: []Field{{Name: "a", Type: FieldU8, Value: uint8(9)}}},
			{Name: "packet", Type: FieldPacket, Value: inner},
		},
	}
	encoded := Encode(outer)
	res, err := Parse(encoded, 0)
	require.NoError(t, err)

	subField, ok := res.Frame.Get("sub")
	require.True(t, ok)
	sub := subField.Value.([]Field)
	require.Len(t, sub, 1)
	assert.Equal(t, uint8(9), sub[0].Value)

	pktField, ok := res.Frame.Get("packet")
	require.True(t, ok)
	pkt := pktField.Value.(Frame)
	assert.Equal(t, uint32(2), pkt.Sequence)
	assert.Equal(t, uint32(EvtData), pkt.Command)
}
