package packetchain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_HandlersRunInPriorityOrder(t *testing.T) {
	c := New(4, nil)
	var order []string

	c.RegisterHandler(StageClassifier, "second", 10, func(p *Packet) error {
		order = append(order, "second")
		return nil
	})
	c.RegisterHandler(StageClassifier, "first", 1, func(p *Packet) error {
		order = append(order, "first")
		return nil
	})

	go c.Run()
	defer c.Stop()

	c.Submit(NewPacket(nil, "src", time.Now()))
	require.Eventually(t, func() bool { return len(order) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestChain_HandlerErrorDoesNotAbortDispatch(t *testing.T) {
	c := New(4, nil)
	ran := false

	c.RegisterHandler(StageGenesis, "failing", 0, func(p *Packet) error {
		return errors.New("boom")
	})
	c.RegisterHandler(StagePostCapture, "after", 0, func(p *Packet) error {
		ran = true
		return nil
	})

	go c.Run()
	defer c.Stop()

	c.Submit(NewPacket(nil, "src", time.Now()))
	require.Eventually(t, func() bool { return ran }, time.Second, time.Millisecond)
}

func TestChain_DropStopsDispatch(t *testing.T) {
	c := New(4, nil)
	reachedTracker := false

	c.RegisterHandler(StageClassifier, "drop-it", 0, func(p *Packet) error {
		p.Drop = true
		return nil
	})
	c.RegisterHandler(StageTracker, "tracker", 0, func(p *Packet) error {
		reachedTracker = true
		return nil
	})

	go c.Run()
	defer c.Stop()

	c.Submit(NewPacket(nil, "src", time.Now()))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, reachedTracker)
}

func TestPacket_ComponentRegistry(t *testing.T) {
	id := RegisterComponent("test-component")
	p := NewPacket(nil, "src", time.Now())

	_, ok := p.Get(id)
	assert.False(t, ok)

	p.Set(id, "hello")
	v, ok := p.Get(id)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}
