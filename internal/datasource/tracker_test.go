package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	openErr    error
	openCalls  int
	channelSet []int
	packets    chan gopacket.Packet
}

func (f *fakeSource) Open(ctx context.Context, definition string) error {
	f.openCalls++
	return f.openErr
}
func (f *fakeSource) Close() error { return nil }
func (f *fakeSource) SetChannel(ch int) error {
	f.channelSet = append(f.channelSet, ch)
	return nil
}
func (f *fakeSource) Packets() <-chan gopacket.Packet { return f.packets }

func fakePrototype(openErr error) (Prototype, *fakeSource) {
	fs := &fakeSource{openErr: openErr, packets: make(chan gopacket.Packet)}
	return Prototype{
		Type:  "fake",
		Probe: func(string) bool { return true },
		New:   func() Source { return fs },
	}, fs
}

func TestTracker_OpenRegistersAndOpensInstance(t *testing.T) {
	tr := NewTracker(nil)
	proto, _ := fakePrototype(nil)
	tr.RegisterPrototype(proto)

	inst, err := tr.Open(context.Background(), "uuid-1", "fake:x")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, inst.State())

	got, ok := tr.Get("uuid-1")
	require.True(t, ok)
	assert.Same(t, inst, got)
}

func TestTracker_ProbeReturnsFalseWhenNoPrototypeClaims(t *testing.T) {
	tr := NewTracker(nil)
	_, ok := tr.Probe("nothingclaimsthis:foo")
	assert.False(t, ok)
}

func TestInstance_OpenEscalatesToErrorAfterRepeatedFailures(t *testing.T) {
	proto, _ := fakePrototype(errors.New("device busy"))
	inst := NewInstance("uuid-2", "fake:x", proto, nil)

	// Shrink backoff-dependent wait by using a short-lived context; the
	// instance should still reach StateError well before any timeout
	// because each attempt fails immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := inst.Open(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, inst.State())
}

func TestScheduleHops_TwoSourcesSameBandInterleavePhase(t *testing.T) {
	tr := NewTracker(nil)
	// Two distinct prototypes so each instance gets its own fakeSource;
	// Probe matches on the definition suffix to keep them independent.
	fsA := &fakeSource{packets: make(chan gopacket.Packet)}
	fsB := &fakeSource{packets: make(chan gopacket.Packet)}
	tr.RegisterPrototype(Prototype{Type: "fake", Probe: func(d string) bool { return d == "fake:a" }, New: func() Source { return fsA }})
	tr.RegisterPrototype(Prototype{Type: "fake", Probe: func(d string) bool { return d == "fake:b" }, New: func() Source { return fsB }})

	_, err := tr.Open(context.Background(), "uuid-a", "fake:a")
	require.NoError(t, err)
	_, err = tr.Open(context.Background(), "uuid-b", "fake:b")
	require.NoError(t, err)

	instA, _ := tr.Get("uuid-a")
	instB, _ := tr.Get("uuid-b")

	tr.ScheduleHops([]int{1, 6, 11}, HopConfig{HopRate: 200 * time.Millisecond, SplitSameSource: true})
	defer instA.Close()
	defer instB.Close()

	// T=0: source-number 0 dwells on channel 1, source-number 1 on 6.
	assert.Equal(t, 1, instA.CurrentChannel())
	assert.Equal(t, 6, instB.CurrentChannel())

	require.Eventually(t, func() bool {
		return instA.CurrentChannel() == 6 && instB.CurrentChannel() == 11
	}, time.Second, 10*time.Millisecond)
}
