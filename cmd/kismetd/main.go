// Command kismetd is the wireless tracking daemon: it loads config,
// bootstraps every core component, opens any sources named on the
// command line, and serves the HTTP/WebSocket external interface until
// signalled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/kismetwireless/kismet-sub014/internal/app"
	"github.com/kismetwireless/kismet-sub014/internal/config"
)

// sourceFlags collects repeated -source flags into a slice.
type sourceFlags []string

func (s *sourceFlags) String() string { return strings.Join(*s, ",") }
func (s *sourceFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var sources sourceFlags
	flag.Var(&sources, "source", "datasource definition to open at startup (repeatable), e.g. pcapfile:source=/path/to.pcap")
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("kismetd: loading config: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("kismetd: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, definition := range sources {
		// Each source gets a fresh UUID identity (§4's datasource
		// instances are named by UUID, not by their definition string).
		id := uuid.NewString()
		if _, err := a.OpenSource(ctx, id, definition); err != nil {
			a.Log.Sugar().Warnf("failed to open startup source %q: %v", definition, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "opened source %s as %s\n", definition, id)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("kismetd: %v", err)
	}
}
