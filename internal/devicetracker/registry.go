// Package devicetracker implements the sharded device registry (C6): the
// canonical store of every MAC+PHY identity observed, indexed by shard to
// keep lock contention low under heavy packet rates, with a reap policy
// and DEVICE_REMOVED event publication.
package devicetracker

import (
	"sync"
	"time"

	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
	"github.com/kismetwireless/kismet-sub014/internal/eventbus"
	"github.com/kismetwireless/kismet-sub014/internal/rrd"
)

const numShards = 16

type shard struct {
	mu      sync.RWMutex
	devices map[domain.DeviceKey]*domain.Snapshot
}

// Registry is the sharded, concurrent device store.
type Registry struct {
	shards [numShards]*shard
	bus    *eventbus.Bus

	mu       sync.Mutex // guards ssidIndex, the secondary view index
	ssidIndex map[string]map[domain.DeviceKey]struct{}

	fleetMu  sync.Mutex
	fleetLoc *rrd.LocationAggregator // §4.8 cascading fleet-wide history; per-device bounds stay plain running min/max/avg to avoid one 1M-point ring per device
}

// New creates an empty Registry publishing lifecycle events on bus (bus
// may be nil to disable event publication).
func New(bus *eventbus.Bus) *Registry {
	r := &Registry{bus: bus, ssidIndex: make(map[string]map[domain.DeviceKey]struct{}), fleetLoc: rrd.NewLocationAggregator()}
	for i := range r.shards {
		r.shards[i] = &shard{devices: make(map[domain.DeviceKey]*domain.Snapshot)}
	}
	return r
}

// FleetLocation returns the cascading bounding box accumulated across
// every GPS-tagged observation seen by this registry, regardless of
// device.
func (r *Registry) FleetLocation() rrd.BoundingBox {
	r.fleetMu.Lock()
	defer r.fleetMu.Unlock()
	return r.fleetLoc.Bounds()
}

func (r *Registry) shardFor(key domain.DeviceKey) *shard {
	b := key.MAC.Bytes()
	var h uint32
	for _, c := range b {
		h = h*31 + uint32(c)
	}
	return r.shards[h%numShards]
}

// Observation is one tracker-stage update applied to a device, carrying
// only the fields the tracker cares about; dissector-specific shapes
// (dot11.Update, a future BLE update, ...) are converted into this at
// the packetchain's TRACKER stage boundary.
type Observation struct {
	Key          domain.DeviceKey
	Kind         domain.DeviceKind
	SSID         string
	ProbedSSID   string
	BSSID        string
	Channel      int
	Frequency    int
	RSSI         int
	Bytes        int
	IsUplink     bool
	IsRetry      bool
	Standard     string
	IsWiFi6      bool
	IsWiFi7      bool
	IsRandomized bool
	RSN          *domain.RSNSnapshot
	WPS          *domain.WPSSnapshot
	Timestamp    time.Time

	HasLocation   bool
	Lat, Lon, Alt float64

	// TypeHint ORs into the device's type_set bitmask (§3); SSIDRecord,
	// when non-nil, is upserted into the device's per-SSID record map;
	// ClientMAC, when set, records an associated client into this
	// (AP) device's client_map.
	TypeHint    domain.TypeSet
	SSIDRecord  *domain.SSIDRecord
	ClientMAC   string
	IsFragment  bool
	DHCPHost    string
	DHCPVendor  string
	CDPDevice   string
	CDPPort     string
	EAPIdentity string
	Handshake   domain.HandshakeState
	DroneID     *domain.DroneIDInfo
}

// Apply merges an Observation into the registry, creating the device if
// it is new. A MAC marked error (domain.MAC.IsError) is never inserted
// (§3 invariant). Returns the resulting snapshot and whether it was newly
// created.
func (r *Registry) Apply(obs Observation) (domain.Snapshot, bool) {
	if obs.Key.MAC.IsError() {
		return domain.Snapshot{}, false
	}

	s := r.shardFor(obs.Key)
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, existed := s.devices[obs.Key]
	isNew := !existed
	if !existed {
		snap = &domain.Snapshot{
			Key:         obs.Key,
			Kind:        obs.Kind,
			FirstTime:   obs.Timestamp,
			ProbedSSIDs: make(map[string]time.Time),
			RSSIMin:     obs.RSSI,
			RSSIMax:     obs.RSSI,
		}
		s.devices[obs.Key] = snap
	}

	mergeObservation(snap, obs)
	snap.Dirty = true

	if obs.HasLocation {
		r.fleetMu.Lock()
		r.fleetLoc.Add(obs.Lat, obs.Lon, obs.Alt)
		r.fleetMu.Unlock()
	}

	if snap.SSID != "" {
		r.indexSSID(snap.SSID, obs.Key)
	}

	if isNew && r.bus != nil {
		r.bus.Publish(eventbus.TopicDeviceAdded, *snap)
	} else if r.bus != nil {
		r.bus.Publish(eventbus.TopicDeviceUpdated, *snap)
	}

	return *snap, isNew
}

func mergeObservation(snap *domain.Snapshot, obs Observation) {
	if obs.Kind != domain.KindUnknown {
		snap.Kind = obs.Kind
	}
	if obs.SSID != "" {
		snap.SSID = obs.SSID
	}
	if obs.ProbedSSID != "" {
		if snap.ProbedSSIDs == nil {
			snap.ProbedSSIDs = make(map[string]time.Time)
		}
		snap.ProbedSSIDs[obs.ProbedSSID] = obs.Timestamp
	}
	if obs.BSSID != "" {
		snap.ConnectedBSSID = obs.BSSID
	}
	if obs.Channel != 0 {
		snap.Channel = obs.Channel
	}
	if obs.Frequency != 0 {
		snap.Frequency = obs.Frequency
	}
	snap.RSSILast = obs.RSSI
	if obs.RSSI < snap.RSSIMin || snap.RSSIMin == 0 {
		snap.RSSIMin = obs.RSSI
	}
	if obs.RSSI > snap.RSSIMax {
		snap.RSSIMax = obs.RSSI
	}
	snap.PacketCount++
	if obs.IsUplink {
		snap.DataBytesTx += uint64(obs.Bytes)
	} else {
		snap.DataBytesRx += uint64(obs.Bytes)
	}
	if obs.IsRetry {
		snap.RetryCount++
	}
	if obs.Standard != "" {
		snap.Standard = obs.Standard
	}
	snap.IsWiFi6 = snap.IsWiFi6 || obs.IsWiFi6
	snap.IsWiFi7 = snap.IsWiFi7 || obs.IsWiFi7
	snap.IsRandomized = snap.IsRandomized || obs.IsRandomized
	if obs.RSN != nil {
		snap.RSN = obs.RSN
	}
	if obs.WPS != nil {
		snap.WPS = obs.WPS
	}
	snap.LastTime = obs.Timestamp

	if obs.HasLocation {
		mergeLocation(snap, obs.Lat, obs.Lon, obs.Alt)
	}

	if obs.TypeHint != 0 {
		snap.TypeSet |= obs.TypeHint
	}
	if obs.SSIDRecord != nil {
		if snap.SSIDRecords == nil {
			snap.SSIDRecords = make(map[uint32]*domain.SSIDRecord)
		}
		upsertSSIDRecord(snap.SSIDRecords, obs.SSIDRecord)
	}
	if obs.ClientMAC != "" {
		if snap.ClientMap == nil {
			snap.ClientMap = make(map[string]time.Time)
		}
		snap.ClientMap[obs.ClientMAC] = obs.Timestamp
	}
	if obs.IsFragment {
		snap.FragmentCount++
	}
	if obs.DHCPHost != "" {
		snap.DHCPHost = obs.DHCPHost
	}
	if obs.DHCPVendor != "" {
		snap.DHCPVendor = obs.DHCPVendor
	}
	if obs.CDPDevice != "" {
		snap.CDPDevice = obs.CDPDevice
	}
	if obs.CDPPort != "" {
		snap.CDPPort = obs.CDPPort
	}
	if obs.EAPIdentity != "" {
		snap.EAPIdentity = obs.EAPIdentity
	}
	if obs.Handshake != domain.HandshakeNone {
		snap.Handshake = obs.Handshake
	}
	if obs.DroneID != nil {
		snap.DroneID = obs.DroneID
	}
}

// upsertSSIDRecord merges one observed SSID record into a device's
// ssid_map (§3 "SSID record"; §4.7 tracker update step 2: "upsert the
// SSID record; increment beacon counter, update last-time, channel,
// beacon-rate, country info"). rec.BeaconCount carries the increment
// contributed by this one observation (1 for a beacon, 0 otherwise), so
// the very first beacon for a fresh SSID yields BeaconCount==1 per
// invariant §8.2.
func upsertSSIDRecord(m map[uint32]*domain.SSIDRecord, rec *domain.SSIDRecord) {
	cur, ok := m[rec.Checksum]
	if !ok {
		cp := *rec
		m[rec.Checksum] = &cp
		return
	}
	cur.SSID = rec.SSID
	cur.Length = rec.Length
	cur.Advertising = rec.Advertising
	cur.CryptSet = rec.CryptSet
	cur.Cloaked = rec.Cloaked
	cur.LastTime = rec.LastTime
	if rec.BeaconRate != 0 {
		cur.BeaconRate = rec.BeaconRate
	}
	cur.BeaconCount += rec.BeaconCount
	if rec.Channel != 0 {
		cur.Channel = rec.Channel
	}
	if rec.Country != "" {
		cur.Country = rec.Country
		cur.Ranges = rec.Ranges
	}
}

// mergeLocation folds one GPS fix into a device's running min/max/avg
// geo bounds (§3.3 "geo bounds: min/max/avg lat/lon/alt with running
// aggregate"). A full cascading history per device would need its own
// 1,000,000-point ring (rrd.LocationAggregator's long tier) per device,
// which the registry keeps fleet-wide instead (see Registry.fleetLoc).
func mergeLocation(snap *domain.Snapshot, lat, lon, alt float64) {
	if !snap.HasLocation {
		snap.HasLocation = true
		snap.MinLat, snap.MaxLat, snap.AvgLat = lat, lat, lat
		snap.MinLon, snap.MaxLon, snap.AvgLon = lon, lon, lon
		snap.MinAlt, snap.MaxAlt, snap.AvgAlt = alt, alt, alt
	} else {
		if lat < snap.MinLat {
			snap.MinLat = lat
		}
		if lat > snap.MaxLat {
			snap.MaxLat = lat
		}
		if lon < snap.MinLon {
			snap.MinLon = lon
		}
		if lon > snap.MaxLon {
			snap.MaxLon = lon
		}
		if alt < snap.MinAlt {
			snap.MinAlt = alt
		}
		if alt > snap.MaxAlt {
			snap.MaxAlt = alt
		}
		n := float64(snap.LocationCount)
		snap.AvgLat = (snap.AvgLat*n + lat) / (n + 1)
		snap.AvgLon = (snap.AvgLon*n + lon) / (n + 1)
		snap.AvgAlt = (snap.AvgAlt*n + alt) / (n + 1)
	}
	snap.LastLat, snap.LastLon, snap.LastAlt = lat, lon, alt
	snap.LocationCount++
}

func (r *Registry) indexSSID(ssid string, key domain.DeviceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.ssidIndex[ssid]
	if !ok {
		set = make(map[domain.DeviceKey]struct{})
		r.ssidIndex[ssid] = set
	}
	set[key] = struct{}{}
}

// Get returns a copy of the current snapshot for key, if present.
func (r *Registry) Get(key domain.DeviceKey) (domain.Snapshot, bool) {
	s := r.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.devices[key]
	if !ok {
		return domain.Snapshot{}, false
	}
	return *snap, true
}

// All returns a snapshot of every tracked device. Intended for the
// httpapi device list view and periodic RRD rollups, not hot-path use.
func (r *Registry) All() []domain.Snapshot {
	var out []domain.Snapshot
	for _, s := range r.shards {
		s.mu.RLock()
		for _, snap := range s.devices {
			out = append(out, *snap)
		}
		s.mu.RUnlock()
	}
	return out
}

// SSIDs returns every distinct SSID currently indexed, across all
// devices (the phy80211/ssids view, §[C9]).
func (r *Registry) SSIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.ssidIndex))
	for s := range r.ssidIndex {
		out = append(out, s)
	}
	return out
}

// ClearDirty resets the dirty bit on every device, intended to be called
// after a full-state snapshot has been serialized to a client.
func (r *Registry) ClearDirty() {
	for _, s := range r.shards {
		s.mu.Lock()
		for _, snap := range s.devices {
			snap.Dirty = false
		}
		s.mu.Unlock()
	}
}

// Dirty returns only devices whose Dirty bit is set, for incremental
// view updates (the kismet.device.list delta feed).
func (r *Registry) Dirty() []domain.Snapshot {
	var out []domain.Snapshot
	for _, s := range r.shards {
		s.mu.RLock()
		for _, snap := range s.devices {
			if snap.Dirty {
				out = append(out, *snap)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// Reap removes devices whose LastTime is older than now.Add(-maxAge),
// publishing DEVICE_REMOVED for each, and returns the count removed. A
// maxAge of zero disables reaping entirely, matching the teacher's
// "0 = never expire" tracker.max_age semantics.
func (r *Registry) Reap(now time.Time, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	threshold := now.Add(-maxAge)
	removed := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for key, snap := range s.devices {
			if snap.LastTime.Before(threshold) {
				delete(s.devices, key)
				removed++
				if r.bus != nil {
					r.bus.Publish(eventbus.TopicDeviceRemoved, key)
				}
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Count returns the number of tracked devices.
func (r *Registry) Count() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.devices)
		s.mu.RUnlock()
	}
	return n
}
