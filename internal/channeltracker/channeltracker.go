// Package channeltracker indexes per-channel activity (C9): packet and
// byte counts, each backed by an rrd.RRD so the HTTP surface can serve
// recent-activity sparklines per channel, plus a device count. The
// device count is the number of distinct device keys ever seen on the
// channel: the set is never pruned, so it is not a count of currently
// active devices, and it has no RRD history.
package channeltracker

import (
	"sort"
	"sync"
	"time"

	"github.com/kismetwireless/kismet-sub014/internal/rrd"
)

// ChannelStats is one channel or frequency's live counters plus its
// packet/byte-count history.
type ChannelStats struct {
	Channel   int
	Frequency int

	packets *rrd.RRD
	bytes   *rrd.RRD
	devices map[string]struct{} // device key strings seen on this channel

	mu sync.Mutex
}

// Tracker indexes ChannelStats by both channel number and frequency, the
// two keys Kismet's channel view historically exposes.
type Tracker struct {
	mu       sync.RWMutex
	byChan   map[int]*ChannelStats
	byFreq   map[int]*ChannelStats
}

// New creates an empty channel tracker.
func New() *Tracker {
	return &Tracker{byChan: make(map[int]*ChannelStats), byFreq: make(map[int]*ChannelStats)}
}

func (t *Tracker) statsFor(channel, freq int) *ChannelStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cs, ok := t.byChan[channel]; ok {
		return cs
	}
	cs := &ChannelStats{
		Channel:   channel,
		Frequency: freq,
		packets:   rrd.New(rrd.AggSum),
		bytes:     rrd.New(rrd.AggSum),
		devices:   make(map[string]struct{}),
	}
	t.byChan[channel] = cs
	if freq != 0 {
		t.byFreq[freq] = cs
	}
	return cs
}

// Observe records one frame's contribution to channel/frequency activity.
func (t *Tracker) Observe(now time.Time, channel, freq, byteLen int, deviceKey string) {
	cs := t.statsFor(channel, freq)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.packets.Add(now, 1)
	cs.bytes.Add(now, float64(byteLen))
	if deviceKey != "" {
		cs.devices[deviceKey] = struct{}{}
	}
}

// Snapshot is the serializable view of one channel's activity.
type Snapshot struct {
	Channel      int
	Frequency    int
	DeviceCount  int
	PacketsLastSecond []float64
	BytesLastSecond   []float64
}

// Channels returns a snapshot per tracked channel, sorted by channel
// number (the shape backing channels.json).
func (t *Tracker) Channels() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Snapshot, 0, len(t.byChan))
	for ch, cs := range t.byChan {
		cs.mu.Lock()
		out = append(out, Snapshot{
			Channel:           ch,
			Frequency:         cs.Frequency,
			DeviceCount:       len(cs.devices),
			PacketsLastSecond: cs.packets.LastSeconds(10),
			BytesLastSecond:   cs.bytes.LastSeconds(10),
		})
		cs.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}
