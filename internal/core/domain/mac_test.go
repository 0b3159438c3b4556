package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMAC_ParseRoundTrip(t *testing.T) {
	m, err := NewMAC("02:11:22:33:44:55")
	require.NoError(t, err)
	assert.Equal(t, "02:11:22:33:44:55", m.String())
	assert.False(t, m.IsZero())
	assert.False(t, m.IsError())
}

func TestMAC_InvalidInput(t *testing.T) {
	_, err := NewMAC("not-a-mac")
	assert.ErrorIs(t, err, ErrInvalidMAC)
}

func TestMAC_ErrorDistinctFromZeroValue(t *testing.T) {
	e := ErrorMAC()
	assert.True(t, e.IsError())
	assert.False(t, MAC{}.IsError())
}

func TestMAC_ContainsWithOUIMask(t *testing.T) {
	ouiMask := [6]byte{0xff, 0xff, 0xff, 0x00, 0x00, 0x00}
	prefix := MustMAC("aa:bb:cc:00:00:00").WithMask(ouiMask)
	target := MustMAC("aa:bb:cc:de:ad:be")
	assert.True(t, prefix.Contains(target))

	other := MustMAC("aa:bb:cd:de:ad:be")
	assert.False(t, prefix.Contains(other))
}

func TestMAC_LessGivesTotalOrder(t *testing.T) {
	a := MustMAC("00:00:00:00:00:01")
	b := MustMAC("00:00:00:00:00:02")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}

func TestMAC_LocallyAdministeredBit(t *testing.T) {
	random := MustMAC("02:11:22:33:44:55")
	assert.True(t, random.IsLocallyAdministered())

	global := MustMAC("00:11:22:33:44:55")
	assert.False(t, global.IsLocallyAdministered())
}

func TestDeviceKey_String(t *testing.T) {
	k := DeviceKey{MAC: MustMAC("aa:bb:cc:dd:ee:ff"), PHY: PHY80211}
	assert.Equal(t, "aa:bb:cc:dd:ee:ff/1", k.String())
}
