// Package packetchain implements the staged packet dispatch pipeline (C5):
// every captured frame runs through a fixed sequence of named stages, each
// backed by a priority-ordered list of handlers that may attach data to
// the packet's component registry for later stages to consume.
package packetchain

import (
	"sync"
	"time"

	"github.com/google/gopacket"
)

// Stage names the fixed dispatch points a Packet passes through, in
// order. Handlers register against a Stage; all handlers for a stage run
// before the chain advances to the next one.
type Stage int

const (
	StageGenesis Stage = iota
	StagePostCapture
	StageLLCDissect
	StageDecrypt
	StageDataDissect
	StageClassifier
	StageTracker
	StageLogging
	StageDestroy

	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageGenesis:
		return "GENESIS"
	case StagePostCapture:
		return "POST_CAPTURE"
	case StageLLCDissect:
		return "LLC_DISSECT"
	case StageDecrypt:
		return "DECRYPT"
	case StageDataDissect:
		return "DATA_DISSECT"
	case StageClassifier:
		return "CLASSIFIER"
	case StageTracker:
		return "TRACKER"
	case StageLogging:
		return "LOGGING"
	case StageDestroy:
		return "DESTROY"
	default:
		return "UNKNOWN"
	}
}

// ComponentID is a small integer handle into a Packet's component
// registry, analogous to Kismet's packet component ids; handlers claim
// an id via RegisterComponent and use it for Get/Set for the lifetime of
// the process.
type ComponentID int

var (
	componentMu    sync.Mutex
	componentNames []string
)

// RegisterComponent allocates a new ComponentID for a named component
// kind. Intended to be called from package init() by each stage handler
// that needs to stash data on packets (mirrors Kismet's
// packetchain_comp_* registration pattern).
func RegisterComponent(name string) ComponentID {
	componentMu.Lock()
	defer componentMu.Unlock()
	componentNames = append(componentNames, name)
	return ComponentID(len(componentNames) - 1)
}

// Packet is one frame moving through the chain: the raw decoded gopacket
// plus an arbitrary slot-indexed component registry.
type Packet struct {
	Raw        gopacket.Packet
	SourceUUID string
	Timestamp  time.Time

	mu         sync.RWMutex
	components map[ComponentID]interface{}

	// Drop, when set by a handler, stops further stage dispatch (used by
	// the decrypt stage to halt on frames it cannot decode, and by the
	// classifier to suppress uninteresting traffic before it reaches the
	// tracker).
	Drop bool
}

// NewPacket wraps a raw capture in a chain Packet.
func NewPacket(raw gopacket.Packet, sourceUUID string, ts time.Time) *Packet {
	return &Packet{Raw: raw, SourceUUID: sourceUUID, Timestamp: ts, components: make(map[ComponentID]interface{})}
}

// Set attaches a value under id, overwriting any previous value.
func (p *Packet) Set(id ComponentID, v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.components[id] = v
}

// Get retrieves a previously Set value.
func (p *Packet) Get(id ComponentID) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.components[id]
	return v, ok
}
