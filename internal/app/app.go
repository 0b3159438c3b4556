// Package app is the composition root: it bootstraps every core
// component (config, logging, device/channel trackers, datasource
// fleet, packet chain, external interface) and owns their run/shutdown
// lifecycle. Grounded on the teacher's own Application facade
// (internal/app/app.go in lcalzada-xor-wmap): a bootstrap() that wires
// services in dependency order, and a Run() that starts every
// long-lived goroutine behind a shared error channel and a context
// cancellation select, generalized from wmap's fixed sniffer/web/grpc
// trio to this core's datasource/chain/httpapi trio.
package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kismetwireless/kismet-sub014/internal/channeltracker"
	"github.com/kismetwireless/kismet-sub014/internal/config"
	"github.com/kismetwireless/kismet-sub014/internal/datasource"
	"github.com/kismetwireless/kismet-sub014/internal/datasource/drivers"
	"github.com/kismetwireless/kismet-sub014/internal/devicetracker"
	"github.com/kismetwireless/kismet-sub014/internal/dot11"
	"github.com/kismetwireless/kismet-sub014/internal/eventbus"
	"github.com/kismetwireless/kismet-sub014/internal/geo"
	"github.com/kismetwireless/kismet-sub014/internal/httpapi"
	"github.com/kismetwireless/kismet-sub014/internal/klog"
	"github.com/kismetwireless/kismet-sub014/internal/packetchain"
	"github.com/kismetwireless/kismet-sub014/internal/storage"
	"github.com/kismetwireless/kismet-sub014/internal/telemetry"
	"go.uber.org/zap"
)

// allChannels is the fleet-wide 2.4GHz + 5GHz channel list the hop
// scheduler hands to every open source at a per-source phase offset; a real deployment would
// source this from the regulatory domain, which is out of scope here.
var allChannels = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 36, 40, 44, 48, 149, 153, 157, 161, 165}

// Application owns every long-lived component this daemon runs.
type Application struct {
	Config *config.Config
	Log    *zap.Logger

	Bus        *eventbus.Bus
	Devices    *devicetracker.Registry
	Channels   *channeltracker.Tracker
	Sources    *datasource.Tracker
	Chain      *packetchain.Chain
	HTTP       *httpapi.Server
	Store      *storage.Store
	Archive    *storage.ArchiveWriter
	Handshakes *dot11.HandshakeCapture
	Remote     *datasource.RemoteListener
	Keys       *dot11.Keyring
	GPS        geo.Provider
}

// New constructs and wires an Application from cfg.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("app: bootstrap: %w", err)
	}
	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()
	app.Log = klog.New(app.Config.Debug)

	if err := os.MkdirAll(app.Config.LogPrefix, 0o755); err != nil {
		return fmt.Errorf("creating log prefix directory: %w", err)
	}

	app.Bus = eventbus.New()
	app.Devices = devicetracker.New(app.Bus)
	app.Channels = channeltracker.New()

	store, err := storage.Open(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening device tag store: %w", err)
	}
	app.Store = store

	archive, err := storage.OpenArchive(filepath.Join(app.Config.LogPrefix, "kismet.archive.zst"))
	if err != nil {
		return fmt.Errorf("opening frame archive: %w", err)
	}
	app.Archive = archive

	app.Handshakes = dot11.NewHandshakeCapture(filepath.Join(app.Config.LogPrefix, "handshakes"))

	app.Keys = dot11.NewKeyring()
	app.loadKeys()

	if app.Config.GPS.Enabled {
		app.GPS = geo.NewStaticProvider(app.Config.GPS.Latitude, app.Config.GPS.Longitude, app.Config.GPS.Altitude)
	}

	app.Sources = datasource.NewTracker(app.Log)
	app.Sources.RegisterPrototype(drivers.PcapFilePrototype)
	app.Sources.RegisterPrototype(drivers.IPCPrototype)

	app.Chain = packetchain.New(1024, app.Log)
	app.registerChainHandlers()

	app.HTTP = httpapi.New(app.Config.HTTPAddr, app.Sources, app.Devices, app.Channels, app.Bus, app.Store, app.Log)
	app.HTTP.PcapDir = filepath.Join(app.Config.LogPrefix, "handshakes")

	if app.Config.Remote.Enabled {
		remote, err := datasource.ListenRemote(app.Config.Remote.Listen, app.Log)
		if err != nil {
			return fmt.Errorf("starting remote datasource listener: %w", err)
		}
		app.Remote = remote
	}

	return nil
}

// loadKeys registers every configured decrypt key with the keyring so
// the DECRYPT-stage handler can attempt recovery on matching BSSIDs.
func (app *Application) loadKeys() {
	for _, k := range app.Config.Keys {
		if k.WEPKeyHex != "" {
			raw, err := hex.DecodeString(k.WEPKeyHex)
			if err != nil {
				app.Log.Warn("skipping malformed WEP key", zap.String("bssid", k.BSSID), zap.Error(err))
				continue
			}
			app.Keys.SetWEPKey(k.BSSID, raw)
		}
		if k.Passphrase != "" {
			app.Keys.SetWPAPassphrase(k.BSSID, k.SSID, k.Passphrase)
		}
	}
}

// registerChainHandlers wires the 802.11 dissector into the packet
// chain's DECRYPT, DATA_DISSECT, and TRACKER stages, plus an archival
// handler at LOGGING (§5 staged dispatch: GENESIS..DESTROY).
func (app *Application) registerChainHandlers() {
	app.Chain.RegisterHandler(packetchain.StagePostCapture, "gps.stamp", 0, packetchain.GPSHandler(app.GPS))
	app.Chain.RegisterHandler(packetchain.StageDecrypt, "dot11.decrypt", 0, dot11.DecryptHandler(app.Keys))
	app.Chain.RegisterHandler(packetchain.StageDataDissect, "dot11.dissect", 0, dot11.DissectHandler())
	app.Chain.RegisterHandler(packetchain.StageDataDissect, "dot11.handshake", 10, dot11.HandshakeHandler(app.Handshakes, app.Devices))
	app.Chain.RegisterHandler(packetchain.StageTracker, "dot11.tracker", 0, dot11.TrackerHandler(app.Devices, app.Channels))
	app.Chain.RegisterHandler(packetchain.StageLogging, "archive.write", 0, func(p *packetchain.Packet) error {
		telemetry.PacketsProcessed.WithLabelValues("logging").Inc()
		return app.Archive.WriteFrame(p.Timestamp, p.Raw.Data())
	})
}

// OpenSource probes, opens, and registers a new datasource instance,
// then starts a goroutine pumping its decoded packets into the chain.
func (app *Application) OpenSource(ctx context.Context, uuid, definition string) (*datasource.Instance, error) {
	inst, err := app.Sources.Open(ctx, uuid, definition)
	if err != nil {
		telemetry.DatasourceErrors.WithLabelValues(uuid).Inc()
		return inst, err
	}
	go app.pumpSource(inst)
	return inst, nil
}

func (app *Application) pumpSource(inst *datasource.Instance) {
	for pkt := range inst.Packets() {
		telemetry.PacketsCaptured.WithLabelValues(inst.UUID).Inc()
		app.Chain.Submit(packetchain.NewPacket(pkt, inst.UUID, time.Now()))
	}
}

// runReapLoop periodically expires stale devices per the configured
// reap policy (tracker.max_age_seconds == 0 disables reaping).
func (app *Application) runReapLoop(ctx context.Context) {
	interval := time.Duration(app.Config.Tracker.ReapIntervalSecond) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	maxAge := time.Duration(app.Config.Tracker.MaxAgeSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := app.Devices.Reap(time.Now(), maxAge)
			if n > 0 {
				app.Log.Debug("reaped stale devices", zap.Int("count", n))
			}
			telemetry.DevicesTracked.WithLabelValues("802.11").Set(float64(app.Devices.Count()))
		}
	}
}

// runHopScheduler kicks off the fleet hop scheduler once at startup per
// the configured datasource defaults; ScheduleHops only affects sources
// that are already open, so callers opening sources later must trigger
// it again (the HTTP set_hop.cmd endpoint is the per-source escape
// hatch for that).
func (app *Application) runHopScheduler() {
	if !app.Config.Datasource.HopOn {
		return
	}
	app.Sources.ScheduleHops(allChannels, datasource.HopConfig{
		HopRate:         time.Duration(app.Config.Datasource.HopRate * float64(time.Second)),
		SplitSameSource: app.Config.Datasource.SplitSameSource,
		RandomOrder:     app.Config.Datasource.RandomHopOrder,
	})
}

// Run starts every long-lived component and blocks until ctx is
// cancelled or a fatal component error occurs.
func (app *Application) Run(ctx context.Context) error {
	app.Log.Info("kismetd starting", zap.String("http_addr", app.Config.HTTPAddr))

	go app.Chain.Run()
	go app.runReapLoop(ctx)
	app.runHopScheduler()

	errChan := make(chan error, 2)

	go func() {
		if err := app.HTTP.Run(ctx); err != nil {
			errChan <- fmt.Errorf("httpapi: %w", err)
		}
	}()

	if app.Remote != nil {
		go app.runRemoteAcceptLoop(ctx, errChan)
	}

	select {
	case <-ctx.Done():
		app.Log.Info("shutdown signal received")
	case err := <-errChan:
		app.shutdown()
		return err
	}

	app.shutdown()
	return nil
}

func (app *Application) runRemoteAcceptLoop(ctx context.Context, errChan chan<- error) {
	for {
		definition, conn, err := app.Remote.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			app.Log.Warn("remote datasource accept failed", zap.Error(err))
			continue
		}
		// The accepted definition is only logged: no source instance is
		// built for the connection and nothing is added to Sources; the
		// connection is closed once the handshake has been read.
		conn.Close()
		app.Log.Info("remote datasource handshake received; connection closed", zap.String("definition", definition))
	}
}

func (app *Application) shutdown() {
	app.Chain.Stop()
	if app.Remote != nil {
		app.Remote.Close()
	}
	app.Handshakes.Close()
	if err := app.Archive.Close(); err != nil {
		app.Log.Warn("archive close error", zap.Error(err))
	}
	if err := app.Store.Close(); err != nil {
		app.Log.Warn("store close error", zap.Error(err))
	}
}
