// Package datasource implements the datasource subsystem (C3/C4): driver
// instance state machines, a fleet-wide channel hop scheduler, and a
// remote TCP listener for out-of-process capture helpers speaking the
// codec protocol.
package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/google/gopacket"
	"go.uber.org/zap"
)

// State is a driver instance's current lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateHopping
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateHopping:
		return "hopping"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Source is the behavior a capture driver must provide: open/close a
// capture session, optionally set a channel, and push decoded packets.
type Source interface {
	// Open starts capture against definition (a driver-specific source
	// string, e.g. "pcapfile:source=/tmp/x.pcap" or "wlan0mon").
	Open(ctx context.Context, definition string) error
	// Close stops the capture session, releasing any OS resources.
	Close() error
	// SetChannel changes the capture channel, if the underlying hardware
	// supports it; drivers that can't hop return ErrChannelUnsupported.
	SetChannel(channel int) error
	// Packets returns the channel packets are delivered on. Closed when
	// the source's capture loop exits (EOF, device error, or Close).
	Packets() <-chan gopacket.Packet
}

// Prototype identifies a driver type capable of probing/opening a
// particular source definition scheme (e.g. "pcapfile", "linuxwifi").
type Prototype struct {
	Type string
	// Probe reports whether definition looks like something this
	// prototype can open, without actually opening it.
	Probe func(definition string) bool
	// New constructs a fresh, unopened Source for definition.
	New func() Source
}

const (
	maxConsecutiveErrors = 3
	errorWindow          = 60 * time.Second
	backoffInitial       = 1 * time.Second
	backoffMax           = 30 * time.Second
)

// Instance wraps one Source with its state machine, retry/backoff, and
// optional channel hop list.
type Instance struct {
	UUID       string
	Definition string
	Type       string

	mu    sync.RWMutex
	state State
	err   error

	source Source
	proto  Prototype

	channels     []int
	channelIndex int
	hopRate      time.Duration

	errorTimes []time.Time

	log *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewInstance creates an unopened driver instance.
func NewInstance(uuid, definition string, proto Prototype, log *zap.Logger) *Instance {
	if log == nil {
		log = zap.NewNop()
	}
	return &Instance{
		UUID:       uuid,
		Definition: definition,
		Type:       proto.Type,
		proto:      proto,
		state:      StateClosed,
		log:        log,
		stop:       make(chan struct{}),
	}
}

// State returns the instance's current lifecycle state.
func (in *Instance) State() State {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

// Err returns the most recent error, if the instance is in StateError.
func (in *Instance) Err() error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.err
}

func (in *Instance) setState(s State) {
	in.mu.Lock()
	in.state = s
	in.mu.Unlock()
}

// Open starts the capture session with automatic retry/backoff.
// Consecutive failures within errorWindow escalate to a fatal
// StateError after maxConsecutiveErrors, matching Kismet's
// retry-then-give-up behavior for flaky capture sources.
func (in *Instance) Open(ctx context.Context) error {
	in.setState(StateOpening)
	in.source = in.proto.New()

	backoff := backoffInitial
	for {
		err := in.source.Open(ctx, in.Definition)
		if err == nil {
			in.setState(StateOpen)
			return nil
		}

		in.mu.Lock()
		in.err = err
		now := time.Now()
		in.errorTimes = append(in.errorTimes, now)
		cutoff := now.Add(-errorWindow)
		kept := in.errorTimes[:0]
		for _, t := range in.errorTimes {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		in.errorTimes = kept
		fatal := len(in.errorTimes) >= maxConsecutiveErrors
		in.mu.Unlock()

		if fatal {
			in.setState(StateError)
			in.log.Warn("datasource open failed permanently", zap.String("uuid", in.UUID), zap.Error(err))
			return err
		}

		in.log.Debug("datasource open failed, retrying", zap.String("uuid", in.UUID), zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			in.setState(StateClosed)
			return ctx.Err()
		}
		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

// Close stops the capture session and the hop loop if running.
func (in *Instance) Close() error {
	select {
	case <-in.stop:
	default:
		close(in.stop)
	}
	in.wg.Wait()
	in.setState(StateClosed)
	if in.source != nil {
		return in.source.Close()
	}
	return nil
}

// Packets exposes the underlying source's packet channel.
func (in *Instance) Packets() <-chan gopacket.Packet {
	if in.source == nil {
		return nil
	}
	return in.source.Packets()
}

// SetChannels configures the channel hop list and switches to
// StateHopping. An empty list leaves the instance parked on whatever
// channel it currently occupies. phase sets the starting index into
// channels (mod len(channels)) so that multiple instances sharing one
// schedule dwell on different channels at the same wall-clock tick
// (§4.4 "per-source phase is source-number mod len(schedule)"); the
// channel at that starting index is applied immediately rather than
// waiting for the first hop tick.
func (in *Instance) SetChannels(channels []int, hopRate time.Duration, phase int) {
	in.mu.Lock()
	in.channels = channels
	in.hopRate = hopRate
	if len(channels) > 0 {
		in.channelIndex = ((phase % len(channels)) + len(channels)) % len(channels)
	} else {
		in.channelIndex = 0
	}
	in.mu.Unlock()
	if len(channels) == 0 {
		return
	}
	in.setState(StateHopping)
	in.applyCurrentChannel()
}

// applyCurrentChannel pushes the channel at the current index to the
// underlying source without advancing the index, used for the initial
// T=0 dwell before the hop loop's first tick.
func (in *Instance) applyCurrentChannel() {
	in.mu.RLock()
	if len(in.channels) == 0 || in.source == nil {
		in.mu.RUnlock()
		return
	}
	ch := in.channels[in.channelIndex]
	in.mu.RUnlock()

	if err := in.source.SetChannel(ch); err != nil {
		in.log.Debug("channel set failed", zap.String("uuid", in.UUID), zap.Int("channel", ch), zap.Error(err))
	}
}

// CurrentChannel returns the channel the instance is presently dwelling
// on, or 0 if no channel list is configured.
func (in *Instance) CurrentChannel() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if len(in.channels) == 0 {
		return 0
	}
	return in.channels[in.channelIndex]
}

// Pause suspends hopping (e.g. to let a handshake capture finish) for
// the given duration, then resumes.
func (in *Instance) Pause(d time.Duration) {
	in.setState(StatePaused)
	time.AfterFunc(d, func() {
		if in.State() == StatePaused {
			in.setState(StateHopping)
		}
	})
}

// RunHopLoop advances through the configured channel list on hopRate,
// until Close is called. Intended to run in its own goroutine, one per
// instance, mirroring the teacher's one-hopper-per-sniffer model.
func (in *Instance) RunHopLoop() {
	in.mu.RLock()
	rate := in.hopRate
	in.mu.RUnlock()
	if rate <= 0 {
		return
	}

	in.wg.Add(1)
	defer in.wg.Done()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-in.stop:
			return
		case <-ticker.C:
			if in.State() != StateHopping {
				continue
			}
			in.hop()
		}
	}
}

func (in *Instance) hop() {
	in.mu.Lock()
	if len(in.channels) == 0 {
		in.mu.Unlock()
		return
	}
	in.channelIndex = (in.channelIndex + 1) % len(in.channels)
	ch := in.channels[in.channelIndex]
	in.mu.Unlock()

	if err := in.source.SetChannel(ch); err != nil {
		in.log.Debug("channel hop failed", zap.String("uuid", in.UUID), zap.Int("channel", ch), zap.Error(err))
	}
}
