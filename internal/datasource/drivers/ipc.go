package drivers

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/kismetwireless/kismet-sub014/internal/codec"
	"github.com/kismetwireless/kismet-sub014/internal/datasource"
	"github.com/kismetwireless/kismet-sub014/internal/kerrors"
	"github.com/kismetwireless/kismet-sub014/internal/ringbuf"
)

// IPCDriver speaks the codec wire protocol to an out-of-process capture
// helper launched as a child (e.g. cmd/kismet_cap_pcapfile), the
// generalization of Kismet's kismet_cap_* helper model. Definitions look
// like "ipc:helper=/path/to/binary,source=wlan0mon".
type IPCDriver struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    chan gopacket.Packet
	seq    uint32
	cancel context.CancelFunc
}

// NewIPCDriver constructs an unopened driver.
func NewIPCDriver() datasource.Source {
	return &IPCDriver{out: make(chan gopacket.Packet, 256)}
}

// IPCPrototype is the registration entry for the fleet tracker.
var IPCPrototype = datasource.Prototype{
	Type:  "ipc",
	Probe: func(definition string) bool { return strings.HasPrefix(definition, "ipc:") },
	New:   NewIPCDriver,
}

func parseIPCDefinition(definition string) (helper, source string, err error) {
	if !strings.HasPrefix(definition, "ipc:") {
		return "", "", fmt.Errorf("ipc: malformed definition %q", definition)
	}
	for _, kv := range strings.Split(strings.TrimPrefix(definition, "ipc:"), ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "helper":
			helper = parts[1]
		case "source":
			source = parts[1]
		}
	}
	if helper == "" {
		return "", "", fmt.Errorf("ipc: missing helper in %q", definition)
	}
	return helper, source, nil
}

// Open launches the helper binary and issues OPENSOURCE over its stdin,
// then streams decoded DATA events from stdout until the process exits.
func (d *IPCDriver) Open(ctx context.Context, definition string) error {
	helper, source, err := parseIPCDefinition(definition)
	if err != nil {
		return kerrors.New(kerrors.KindDriver, "ipc.Open", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, helper)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return kerrors.New(kerrors.KindDriver, "ipc.Open", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return kerrors.New(kerrors.KindDriver, "ipc.Open", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return kerrors.New(kerrors.KindDriver, "ipc.Open", err)
	}

	d.mu.Lock()
	d.cmd = cmd
	d.stdin = stdin
	d.cancel = cancel
	d.mu.Unlock()

	open := codec.Frame{
		Sequence: d.nextSeq(),
		Command:  codec.CmdOpenSource,
		Fields:   []codec.Field{{Name: "definition", Type: codec.FieldString, Value: source}},
	}
	if _, err := stdin.Write(codec.Encode(open)); err != nil {
		cancel()
		return kerrors.New(kerrors.KindDriver, "ipc.Open", err)
	}

	go d.readLoop(runCtx, stdout)
	return nil
}

func (d *IPCDriver) nextSeq() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

// readLoop buffers the helper's stdout through a chainbuf (§4.2) rather
// than re-slicing a growing byte slice on every read, so a slow consumer
// or a helper writing in small bursts doesn't force repeated
// reallocation/copy of everything buffered so far.
func (d *IPCDriver) readLoop(ctx context.Context, stdout io.Reader) {
	defer close(d.out)
	cb := ringbuf.New(ringbuf.DefaultChunkSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		slot := cb.Reserve(4096)
		n, err := stdout.Read(slot)
		if n > 0 {
			cb.Commit(slot, n)
		}
		if err != nil {
			return
		}

		for {
			view := cb.Peek(int(cb.Used()))
			if len(view) == 0 {
				break
			}
			res, perr := codec.Parse(view, codec.DefaultMaxFrameSize)
			if perr != nil {
				return // protocol violation; give up on this helper
			}
			if res.Consumed == 0 {
				break // need more bytes
			}
			cb.Consume(res.Consumed)

			if res.Frame.Command == codec.EvtData {
				if payload, ok := res.Frame.Bytes("payload"); ok {
					pkt := gopacket.NewPacket(payload, layers.LinkTypeIEEE80211Radio, gopacket.Lazy)
					select {
					case d.out <- pkt:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}
}

// Close sends CLOSE and terminates the helper process.
func (d *IPCDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stdin != nil {
		closeFrame := codec.Frame{Sequence: d.seq + 1, Command: codec.CmdClose}
		_, _ = d.stdin.Write(codec.Encode(closeFrame))
		d.stdin.Close()
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		return d.cmd.Wait()
	}
	return nil
}

// SetChannel issues a CONFIGURE frame carrying the requested channel.
func (d *IPCDriver) SetChannel(channel int) error {
	d.mu.Lock()
	stdin := d.stdin
	d.mu.Unlock()
	if stdin == nil {
		return kerrors.New(kerrors.KindDriver, "ipc.SetChannel", fmt.Errorf("source not open"))
	}
	frame := codec.Frame{
		Sequence: d.nextSeq(),
		Command:  codec.CmdConfigure,
		Fields:   []codec.Field{{Name: "channel", Type: codec.FieldU32, Value: uint32(channel)}},
	}
	_, err := stdin.Write(codec.Encode(frame))
	return err
}

// Packets exposes the decoded packet stream.
func (d *IPCDriver) Packets() <-chan gopacket.Packet { return d.out }
