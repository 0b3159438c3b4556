package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticProvider_ReturnsFixedLocation(t *testing.T) {
	p := NewStaticProvider(40.0, -105.25, 1600)
	loc := p.GetLocation()

	assert.Equal(t, Location{Latitude: 40.0, Longitude: -105.25, Altitude: 1600}, loc)
}

func TestStaticProvider_ImplementsProvider(t *testing.T) {
	var _ Provider = NewStaticProvider(0, 0, 0)
}
