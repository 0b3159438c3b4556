package packetchain

import (
	"testing"
	"time"

	"github.com/kismetwireless/kismet-sub014/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPSHandler_StampsComponentFromProvider(t *testing.T) {
	provider := geo.NewStaticProvider(40.0, -105.0, 1600)
	handler := GPSHandler(provider)

	p := NewPacket(nil, "src", time.Now())
	require.NoError(t, handler(p))

	v, ok := p.Get(GPSComponent)
	require.True(t, ok)
	loc := v.(geo.Location)
	assert.Equal(t, 40.0, loc.Latitude)
	assert.Equal(t, -105.0, loc.Longitude)
	assert.Equal(t, 1600.0, loc.Altitude)
}

func TestGPSHandler_NilProviderIsNoop(t *testing.T) {
	handler := GPSHandler(nil)
	p := NewPacket(nil, "src", time.Now())
	require.NoError(t, handler(p))

	_, ok := p.Get(GPSComponent)
	assert.False(t, ok)
}
