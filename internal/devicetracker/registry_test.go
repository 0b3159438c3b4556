package devicetracker

import (
	"testing"
	"time"

	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
	"github.com/kismetwireless/kismet-sub014/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(mac string) domain.DeviceKey {
	return domain.DeviceKey{MAC: domain.MustMAC(mac), PHY: domain.PHY80211}
}

func TestRegistry_ApplyCreatesNewDevice(t *testing.T) {
	r := New(nil)
	snap, isNew := r.Apply(Observation{Key: key("aa:bb:cc:dd:ee:01"), Kind: domain.KindAP, SSID: "home", RSSI: -40, Timestamp: time.Now()})
	assert.True(t, isNew)
	assert.Equal(t, "home", snap.SSID)
	assert.Equal(t, uint64(1), snap.PacketCount)
}

func TestRegistry_ApplyMergesExistingDevice(t *testing.T) {
	r := New(nil)
	k := key("aa:bb:cc:dd:ee:02")
	r.Apply(Observation{Key: k, Kind: domain.KindAP, SSID: "home", RSSI: -40, Timestamp: time.Now()})
	snap, isNew := r.Apply(Observation{Key: k, RSSI: -30, Bytes: 100, Timestamp: time.Now()})

	assert.False(t, isNew)
	assert.Equal(t, uint64(2), snap.PacketCount)
	assert.Equal(t, -30, snap.RSSILast)
	assert.Equal(t, -40, snap.RSSIMin)
	assert.Equal(t, -30, snap.RSSIMax)
}

func TestRegistry_ErrorMACNeverInserted(t *testing.T) {
	r := New(nil)
	_, isNew := r.Apply(Observation{Key: domain.DeviceKey{MAC: domain.ErrorMAC(), PHY: domain.PHY80211}})
	assert.False(t, isNew)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_ReapPublishesRemoved(t *testing.T) {
	bus := eventbus.New()
	removed := make(chan domain.DeviceKey, 1)
	bus.Subscribe(eventbus.TopicDeviceRemoved, func(payload interface{}) {
		removed <- payload.(domain.DeviceKey)
	})

	r := New(bus)
	k := key("aa:bb:cc:dd:ee:03")
	old := time.Now().Add(-time.Hour)
	r.Apply(Observation{Key: k, Kind: domain.KindAP, Timestamp: old})

	n := r.Reap(time.Now(), time.Minute)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, r.Count())

	select {
	case got := <-removed:
		assert.Equal(t, k, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for DEVICE_REMOVED")
	}
}

func TestRegistry_ReapZeroMaxAgeNeverExpires(t *testing.T) {
	r := New(nil)
	r.Apply(Observation{Key: key("aa:bb:cc:dd:ee:04"), Timestamp: time.Now().Add(-365 * 24 * time.Hour)})
	n := r.Reap(time.Now(), 0)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ApplyMergesLocationBounds(t *testing.T) {
	r := New(nil)
	k := key("aa:bb:cc:dd:ee:06")
	r.Apply(Observation{Key: k, Kind: domain.KindAP, Timestamp: time.Now(),
		HasLocation: true, Lat: 40.0, Lon: -105.0, Alt: 1600})
	snap, _ := r.Apply(Observation{Key: k, Timestamp: time.Now(),
		HasLocation: true, Lat: 40.1, Lon: -105.2, Alt: 1500})

	assert.True(t, snap.HasLocation)
	assert.Equal(t, 40.0, snap.MinLat)
	assert.Equal(t, 40.1, snap.MaxLat)
	assert.Equal(t, -105.2, snap.MinLon)
	assert.Equal(t, -105.0, snap.MaxLon)
	assert.Equal(t, 1500.0, snap.MinAlt)
	assert.Equal(t, 1600.0, snap.MaxAlt)
	assert.Equal(t, 40.1, snap.LastLat)
	assert.Equal(t, uint64(2), snap.LocationCount)

	bounds := r.FleetLocation()
	assert.True(t, bounds.Valid)
}

func TestRegistry_ApplyWithoutLocationLeavesHasLocationFalse(t *testing.T) {
	r := New(nil)
	snap, _ := r.Apply(Observation{Key: key("aa:bb:cc:dd:ee:07"), Timestamp: time.Now()})
	assert.False(t, snap.HasLocation)
}

func TestRegistry_DirtyTrackingAndClear(t *testing.T) {
	r := New(nil)
	k := key("aa:bb:cc:dd:ee:05")
	r.Apply(Observation{Key: k, Timestamp: time.Now()})

	dirty := r.Dirty()
	require.Len(t, dirty, 1)

	r.ClearDirty()
	assert.Empty(t, r.Dirty())
}
