// Package drivers provides concrete datasource.Source implementations:
// a pcap file replay driver for offline analysis/testing, and an IPC
// driver that speaks the codec protocol to an out-of-process capture
// helper binary (grounded on the teacher's wireless_utils.go channel
// control and sniffer.go capture loop, generalized to gopacket's pcap
// file reader since the teacher only captured live).
package drivers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/kismetwireless/kismet-sub014/internal/datasource"
	"github.com/kismetwireless/kismet-sub014/internal/kerrors"
	"os"
)

// PcapFileDriver replays a previously captured pcap file as if it were
// a live source, useful for testing the packet chain and device tracker
// without hardware. Definitions look like "pcapfile:source=/path/to.pcap".
type PcapFileDriver struct {
	mu     sync.Mutex
	file   *os.File
	reader *pcapgo.Reader
	out    chan gopacket.Packet
	cancel context.CancelFunc
}

// NewPcapFileDriver constructs an unopened driver.
func NewPcapFileDriver() datasource.Source {
	return &PcapFileDriver{out: make(chan gopacket.Packet, 256)}
}

// PcapFilePrototype is the registration entry for the fleet tracker.
var PcapFilePrototype = datasource.Prototype{
	Type:  "pcapfile",
	Probe: func(definition string) bool { return strings.HasPrefix(definition, "pcapfile:") },
	New:   NewPcapFileDriver,
}

func parseSourcePath(definition string) (string, error) {
	const prefix = "pcapfile:source="
	if !strings.HasPrefix(definition, prefix) {
		return "", fmt.Errorf("pcapfile: malformed definition %q", definition)
	}
	path := strings.TrimPrefix(definition, prefix)
	if idx := strings.Index(path, ","); idx >= 0 {
		path = path[:idx]
	}
	if path == "" {
		return "", fmt.Errorf("pcapfile: empty source path in %q", definition)
	}
	return path, nil
}

// Open opens the pcap file and starts a background goroutine streaming
// its packets onto Packets() until EOF or ctx cancellation.
func (d *PcapFileDriver) Open(ctx context.Context, definition string) error {
	path, err := parseSourcePath(definition)
	if err != nil {
		return kerrors.New(kerrors.KindDriver, "pcapfile.Open", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return kerrors.New(kerrors.KindDriver, "pcapfile.Open", err)
	}
	reader, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return kerrors.New(kerrors.KindDriver, "pcapfile.Open", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.file = f
	d.reader = reader
	d.cancel = cancel
	d.mu.Unlock()

	go d.run(runCtx)
	return nil
}

func (d *PcapFileDriver) run(ctx context.Context) {
	defer close(d.out)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, ci, err := d.reader.ReadPacketData()
		if err != nil {
			return // EOF or read error; source is exhausted either way
		}
		pkt := gopacket.NewPacket(data, d.reader.LinkType(), gopacket.Lazy)
		pkt.Metadata().CaptureInfo = ci

		select {
		case d.out <- pkt:
		case <-ctx.Done():
			return
		}
	}
}

// Close stops replay and releases the file handle.
func (d *PcapFileDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// SetChannel is a no-op for file replay; there is no physical radio to
// retune. Returning nil (rather than an unsupported error) keeps the
// fleet hop scheduler from treating file sources as faulty.
func (d *PcapFileDriver) SetChannel(channel int) error { return nil }

// Packets exposes the decoded packet stream.
func (d *PcapFileDriver) Packets() <-chan gopacket.Packet { return d.out }
