// Command kismet_cap_pcapfile is an out-of-process capture helper: it
// speaks the codec wire protocol (internal/codec) over stdin/stdout,
// the same contract internal/datasource/drivers.IPCDriver expects from
// a child capture process. It replays a pcap file as EVT_DATA frames,
// giving the IPC driver something real to spawn in place of a live
// radio helper.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/google/gopacket/pcapgo"
	"github.com/kismetwireless/kismet-sub014/internal/codec"
)

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "kismet_cap_pcapfile: %v\n", err)
		os.Exit(1)
	}
}

func run(stdin *os.File, stdout *os.File) error {
	seq := uint32(0)
	buf := make([]byte, 0, 64*1024)
	r := bufio.NewReaderSize(stdin, 64*1024)

	// Block for the OPENSOURCE command before doing anything else; the
	// driver always sends it first with the real source path in the
	// "definition" field.
	var path string
	for path == "" {
		chunk := make([]byte, 4096)
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return fmt.Errorf("reading OPENSOURCE: %w", err)
		}
		for {
			res, perr := codec.Parse(buf, codec.DefaultMaxFrameSize)
			if perr != nil {
				return perr
			}
			if res.Consumed == 0 {
				break
			}
			buf = buf[res.Consumed:]
			if res.Frame.Command == codec.CmdOpenSource {
				if p, ok := res.Frame.String("definition"); ok {
					path = p
				}
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return writeError(stdout, &seq, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return writeError(stdout, &seq, err)
	}

	for {
		data, _, err := reader.ReadPacketData()
		if err != nil {
			return nil // EOF or truncated capture; done streaming
		}
		seq++
		frame := codec.Frame{
			Sequence: seq,
			Command:  codec.EvtData,
			Fields:   []codec.Field{{Name: "payload", Type: codec.FieldBytes, Value: data}},
		}
		if _, err := stdout.Write(codec.Encode(frame)); err != nil {
			return err
		}
	}
}

func writeError(stdout *os.File, seq *uint32, cause error) error {
	*seq++
	frame := codec.Frame{
		Sequence: *seq,
		Command:  codec.EvtError,
		Fields:   []codec.Field{{Name: "message", Type: codec.FieldString, Value: cause.Error()}},
	}
	_, err := stdout.Write(codec.Encode(frame))
	if err != nil {
		return err
	}
	return cause
}
