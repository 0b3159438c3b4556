package datasource

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HopConfig controls how ScheduleHops hands the fleet-wide channel
// schedule to open instances (§4, "fleet hop scheduler").
type HopConfig struct {
	HopRate         time.Duration
	SplitSameSource bool // start each instance at its own phase offset into the full list instead of all at phase 0
	RandomOrder     bool // shuffle the shared schedule once before phases are assigned
}

// Tracker owns every datasource Instance, the prototype registry used to
// construct new ones, and the fleet hop scheduler that gives every open
// instance the shared channel schedule at a per-instance phase offset.
type Tracker struct {
	mu         sync.RWMutex
	prototypes []Prototype
	instances  map[string]*Instance
	log        *zap.Logger
}

// NewTracker creates an empty datasource tracker.
func NewTracker(log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{instances: make(map[string]*Instance), log: log}
}

// RegisterPrototype adds a driver prototype to the registry (analogous
// to Kismet's `source_builder` registration at daemon startup).
func (t *Tracker) RegisterPrototype(p Prototype) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prototypes = append(t.prototypes, p)
}

// Probe finds the first registered prototype willing to claim
// definition, or ("", false) if none recognize it.
func (t *Tracker) Probe(definition string) (Prototype, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, p := range t.prototypes {
		if p.Probe(definition) {
			return p, true
		}
	}
	return Prototype{}, false
}

// Open probes definition, constructs an Instance, and opens it,
// registering it under uuid for later lookup.
func (t *Tracker) Open(ctx context.Context, uuid, definition string) (*Instance, error) {
	proto, ok := t.Probe(definition)
	if !ok {
		return nil, fmt.Errorf("datasource: no prototype claims %q", definition)
	}

	inst := NewInstance(uuid, definition, proto, t.log)
	t.mu.Lock()
	t.instances[uuid] = inst
	t.mu.Unlock()

	if err := inst.Open(ctx); err != nil {
		return inst, err
	}
	return inst, nil
}

// Close stops and removes the instance registered under uuid.
func (t *Tracker) Close(uuid string) error {
	t.mu.Lock()
	inst, ok := t.instances[uuid]
	delete(t.instances, uuid)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("datasource: unknown instance %q", uuid)
	}
	return inst.Close()
}

// Get returns the instance registered under uuid.
func (t *Tracker) Get(uuid string) (*Instance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inst, ok := t.instances[uuid]
	return inst, ok
}

// List returns every registered instance's UUID, sorted for stable
// output.
func (t *Tracker) List() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.instances))
	for uuid := range t.instances {
		out = append(out, uuid)
	}
	sort.Strings(out)
	return out
}

// ScheduleHops assigns every currently open instance a phase-offset
// position into one shared channel schedule and starts each instance's
// hop loop (§4.4 "fleet hop scheduler"). With SplitSameSource, same-
// driver sources interleave distinct dwell positions across the shared
// schedule instead of each visiting every channel: source-number i
// starts at `schedule[i mod len(schedule)]` and advances from there,
// so N sources sharing a schedule of length >= N are never dwelling on
// the same channel at the same tick. Without SplitSameSource, every
// instance gets the full list starting at phase 0. RandomOrder
// shuffles the shared schedule once before phases are assigned, to
// desynchronize the fleet's hop order run over run.
func (t *Tracker) ScheduleHops(allChannels []int, cfg HopConfig) {
	t.mu.RLock()
	var open []*Instance
	for _, inst := range t.instances {
		if inst.State() == StateOpen || inst.State() == StateHopping {
			open = append(open, inst)
		}
	}
	t.mu.RUnlock()

	sort.Slice(open, func(i, j int) bool { return open[i].UUID < open[j].UUID })

	if len(open) == 0 {
		return
	}

	schedule := append([]int(nil), allChannels...)
	if cfg.RandomOrder {
		rand.Shuffle(len(schedule), func(a, b int) { schedule[a], schedule[b] = schedule[b], schedule[a] })
	}

	for sourceNumber, inst := range open {
		phase := 0
		if cfg.SplitSameSource {
			phase = sourceNumber
		}
		inst.SetChannels(schedule, cfg.HopRate, phase)
		go inst.RunHopLoop()
	}
}
