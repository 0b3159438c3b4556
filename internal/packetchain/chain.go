package packetchain

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Handler processes a Packet at one stage. A returned error is logged
// and swallowed -- a single handler's failure must never abort dispatch
// for the rest of the chain (kerrors.KindDissector-classified errors are
// expected and routine, e.g. a malformed IE on one frame).
type Handler func(p *Packet) error

type registeredHandler struct {
	priority int
	name     string
	fn       Handler
}

// Chain is the ordered, single-threaded packet dispatcher. Exactly one
// goroutine (the chain worker) calls Process at a time; handlers
// themselves may spawn their own background work but must not block the
// chain worker for long, mirroring Kismet's single chain-thread model.
type Chain struct {
	mu       sync.RWMutex
	handlers [stageCount][]registeredHandler
	log      *zap.Logger

	in      chan *Packet
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a Chain with the given inbound queue depth.
func New(queueDepth int, log *zap.Logger) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{
		in:   make(chan *Packet, queueDepth),
		stop: make(chan struct{}),
		log:  log,
	}
}

// RegisterHandler attaches fn to run at stage, ordered by priority
// (lower runs first, matching Kismet's packetchain priority convention).
func (c *Chain) RegisterHandler(stage Stage, name string, priority int, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[stage] = append(c.handlers[stage], registeredHandler{priority: priority, name: name, fn: fn})
	sort.SliceStable(c.handlers[stage], func(i, j int) bool {
		return c.handlers[stage][i].priority < c.handlers[stage][j].priority
	})
}

// Submit enqueues a packet for processing. It blocks if the queue is
// full, providing natural backpressure to the datasource feeding it.
func (c *Chain) Submit(p *Packet) {
	c.in <- p
}

// Run starts the single chain worker goroutine and blocks until Stop is
// called or in is closed.
func (c *Chain) Run() {
	c.wg.Add(1)
	defer c.wg.Done()
	for {
		select {
		case p, ok := <-c.in:
			if !ok {
				return
			}
			c.process(p)
		case <-c.stop:
			return
		}
	}
}

// Stop signals the worker to exit and waits for it to drain.
func (c *Chain) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Chain) process(p *Packet) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for stage := Stage(0); stage < stageCount; stage++ {
		if p.Drop {
			break
		}
		for _, h := range c.handlers[stage] {
			if err := h.fn(p); err != nil {
				c.log.Debug("packetchain handler error",
					zap.String("stage", stage.String()), zap.String("handler", h.name), zap.Error(err))
			}
		}
	}
}
