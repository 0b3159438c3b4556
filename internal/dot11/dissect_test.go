package dot11

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
)

func TestWalkIEs_RoundTrip(t *testing.T) {
	data := []byte{
		0, 4, 't', 'e', 's', 't', // SSID "test"
		3, 1, 6, // DS param set, channel 6
	}
	elems, err := WalkIEs(data)
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.Equal(t, IESSID, elems[0].ID)
	assert.Equal(t, "test", string(elems[0].Value))
	assert.Equal(t, IEDSParamSet, elems[1].ID)
	assert.Equal(t, byte(6), elems[1].Value[0])
}

func TestWalkIEs_TruncatedTrailingIEReturnsPartial(t *testing.T) {
	data := []byte{0, 4, 't', 'e', 's', 't', 3, 5, 1} // declares length 5 but only 1 byte follows
	elems, err := WalkIEs(data)
	require.Error(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, IESSID, elems[0].ID)
}

func TestParseRSN_WPA2PSK(t *testing.T) {
	val := []byte{
		1, 0, // version
		0x00, 0x0f, 0xac, 0x04, // group cipher CCMP-128
		1, 0, 0x00, 0x0f, 0xac, 0x04, // 1 pairwise cipher CCMP-128
		1, 0, 0x00, 0x0f, 0xac, 0x02, // 1 AKM PSK
	}
	info, set := ParseRSN(val)
	assert.Equal(t, "CCMP-128", info.GroupCipher)
	assert.Contains(t, info.AKMSuites, "PSK")
	assert.True(t, set.Has(CryptWPA2))
	assert.True(t, set.Has(CryptPSK))
}

func TestParseWPS_ExtractsModel(t *testing.T) {
	data := []byte{
		0x10, 0x21, 0, 4, 'A', 'c', 'm', 'e', // manufacturer
		0x10, 0x23, 0, 3, 'X', '1', '0', // model name
		0x10, 0x44, 0, 1, 0x02, // configured
	}
	d := ParseWPS(data)
	assert.Equal(t, "Acme", d.Manufacturer)
	assert.Equal(t, "X10", d.Model)
	assert.Equal(t, WPSConfigured, d.State)
}

func TestIsWPSVendorIE(t *testing.T) {
	assert.True(t, IsWPSVendorIE([]byte{0x00, 0x50, 0xf2, 0x04, 0xff}))
	assert.False(t, IsWPSVendorIE([]byte{0x00, 0x17, 0xf2, 0x04}))
}

func TestFrequencyToChannel(t *testing.T) {
	assert.Equal(t, 6, frequencyToChannel(2437))
	assert.Equal(t, 14, frequencyToChannel(2484))
	assert.Equal(t, 36, frequencyToChannel(5180))
}

func TestParseRates_StripsBasicRateBit(t *testing.T) {
	rates := ParseRates([]byte{0x82, 0x84, 0x8b, 0x16})
	assert.Equal(t, []float64{1, 2, 5.5, 11}, rates)
}

func TestParseCountry_DecodesCodeAndRanges(t *testing.T) {
	val := []byte{'U', 'S', 0x01, 1, 11, 20, 36, 8, 23}
	info := ParseCountry(val)
	assert.Equal(t, "US", info.Code)
	require.Len(t, info.Ranges, 2)
	assert.Equal(t, domain.CountryRange{StartChannel: 1, Count: 11, TxPower: 20}, info.Ranges[0])
	assert.Equal(t, domain.CountryRange{StartChannel: 36, Count: 8, TxPower: 23}, info.Ranges[1])
}

func TestParseQBSSLoad(t *testing.T) {
	q := ParseQBSSLoad([]byte{5, 0, 42, 0x10, 0x00})
	assert.Equal(t, 5, q.StationCount)
	assert.Equal(t, 42, q.ChannelUtilization)
	assert.Equal(t, 16, q.AvailableCapacity)
}

func TestSplitVendorIE(t *testing.T) {
	oui, vendorType, rest, ok := SplitVendorIE([]byte{0x26, 0x37, 0x12, 0x10, 0xaa, 0xbb})
	require.True(t, ok)
	assert.Equal(t, VendorOUI{0x26, 0x37, 0x12}, oui)
	assert.Equal(t, byte(0x10), vendorType)
	assert.Equal(t, []byte{0xaa, 0xbb}, rest)
}

func TestParseRSN_ExpandsWEPAndTKIPBits(t *testing.T) {
	val := []byte{
		1, 0,
		0x00, 0x0f, 0xac, 0x05, // group cipher WEP-104
		1, 0, 0x00, 0x0f, 0xac, 0x02, // pairwise TKIP
		1, 0, 0x00, 0x0f, 0xac, 0x01, // AKM 802.1X
	}
	_, set := ParseRSN(val)
	assert.True(t, set.Has(CryptWEP))
	assert.True(t, set.Has(CryptWEP104))
	assert.True(t, set.Has(CryptTKIP))
	assert.True(t, set.Has(CryptEAP))
}
