package dot11

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDJIDroneID_FlightRegInfo(t *testing.T) {
	body := make([]byte, 0, 32)
	body = append(body, 0x01)       // version
	body = append(body, 0x00, 0x00) // sequence
	body = append(body, 0x00, 0x00) // state bitfield
	serial := make([]byte, 16)
	copy(serial, "SN1234567890ABCD")
	body = append(body, serial...)

	lonBuf := make([]byte, 4)
	latBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lonBuf, uint32(int32(174533)))  // 1.0 deg
	binary.LittleEndian.PutUint32(latBuf, uint32(int32(349066))) // 2.0 deg
	body = append(body, lonBuf...)
	body = append(body, latBuf...)

	altBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(altBuf, uint16(int16(50)))
	body = append(body, altBuf...)

	rest := append([]byte{0x00, 0x00, djiSubcommandFlightRegInfo}, body...)

	info, ok := ParseDJIDroneID(rest)
	require.True(t, ok)
	assert.Equal(t, "SN1234567890ABCD", info.SerialNumber)
	assert.InDelta(t, 1.0, info.Longitude, 0.001)
	assert.InDelta(t, 2.0, info.Latitude, 0.001)
	assert.InDelta(t, 50.0, info.AltitudeM, 0.001)
}

func TestParseDJIDroneID_IgnoresOtherSubcommands(t *testing.T) {
	_, ok := ParseDJIDroneID([]byte{0x00, 0x00, 0x11, 0x01})
	assert.False(t, ok)
}
