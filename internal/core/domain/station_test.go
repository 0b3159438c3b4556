package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSIDChecksum_DiffersByAdvertisingType(t *testing.T) {
	ssid := []byte("corpnet")
	beacon := SSIDChecksum(ssid, SSIDAdvertisingBeacon)
	probe := SSIDChecksum(ssid, SSIDAdvertisingProbeResp)
	assert.NotEqual(t, beacon, probe)

	again := SSIDChecksum(ssid, SSIDAdvertisingBeacon)
	assert.Equal(t, beacon, again)
}

func TestTypeSet_StringListsAllSetBits(t *testing.T) {
	set := TypeAP | TypeWDS | TypeInferred
	s := set.String()
	assert.Contains(t, s, "ap")
	assert.Contains(t, s, "wds")
	assert.Contains(t, s, "inferred")
	assert.NotContains(t, s, "client")
}

func TestHandshakeState_String(t *testing.T) {
	assert.Equal(t, "none", HandshakeNone.String())
	assert.Equal(t, "m3", HandshakeM3.String())
	assert.Equal(t, "complete", HandshakeComplete.String())
	assert.Equal(t, "nacked", HandshakeNacked.String())
}
