package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kismetwireless/kismet-sub014/internal/channeltracker"
	"github.com/kismetwireless/kismet-sub014/internal/datasource"
	"github.com/kismetwireless/kismet-sub014/internal/devicetracker"
	"github.com/kismetwireless/kismet-sub014/internal/eventbus"
	"github.com/kismetwireless/kismet-sub014/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Server is the core's external interface collaborator: it exposes
// datasource, device, channel, and SSID state as JSON and streams live
// device/key events over a websocket. Auth policy ("path requires
// auth") is out of scope here; the core only names which routes exist.
type Server struct {
	Addr string

	// PcapDir, if set, is where handleDevicePcap looks for saved capture
	// files (see internal/dot11's handshake capture sink).
	PcapDir string

	Sources  *datasource.Tracker
	Devices  *devicetracker.Registry
	Channels *channeltracker.Tracker
	Bus      *eventbus.Bus
	Log      *zap.Logger

	// Vendors resolves OUI manufacturer names for device JSON. May be
	// nil, in which case devices simply omit the manuf field.
	Vendors *storage.Store

	ws  *wsHub
	srv *http.Server
}

// New builds a Server wired to the daemon's shared trackers and event
// bus. Call Run to start serving.
func New(addr string, sources *datasource.Tracker, devices *devicetracker.Registry, channels *channeltracker.Tracker, bus *eventbus.Bus, vendors *storage.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Addr:     addr,
		Sources:  sources,
		Devices:  devices,
		Channels: channels,
		Bus:      bus,
		Vendors:  vendors,
		Log:      log,
		ws:       newWSHub(log),
	}
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/datasource/all_sources.json", s.handleAllSources).Methods(http.MethodGet)
	r.HandleFunc("/datasource/list_interfaces.cmd", s.handleListInterfaces).Methods(http.MethodGet)
	r.HandleFunc("/datasource/by-uuid/{uuid}/close.cmd", s.handleSourceClose).Methods(http.MethodPost)
	r.HandleFunc("/datasource/by-uuid/{uuid}/open.cmd", s.handleSourceOpen).Methods(http.MethodPost)
	r.HandleFunc("/datasource/by-uuid/{uuid}/set_channel.cmd", s.handleSourceSetChannel).Methods(http.MethodPost)
	r.HandleFunc("/datasource/by-uuid/{uuid}/set_hop.cmd", s.handleSourceSetHop).Methods(http.MethodPost)

	r.HandleFunc("/devices/views/phydot11/devices.json", s.handleDot11Devices).Methods(http.MethodGet)
	r.HandleFunc("/devices/by-key/{key:.+}/device.json", s.handleDeviceByKey).Methods(http.MethodGet)
	r.HandleFunc("/devices/by-key/{key:.+}/pcap/{name}.pcapng", s.handleDevicePcap).Methods(http.MethodGet)

	r.HandleFunc("/channels/channels.json", s.handleChannels).Methods(http.MethodGet)

	r.HandleFunc("/phy/phy80211/ssids/views.json", s.handleSSIDViews).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.ws.handle)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.ws.start(ctx, s.Bus)

	handler := otelhttp.NewHandler(s.routes(), "kismetd-httpapi")
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.Log.Warn("httpapi shutdown error", zap.Error(err))
		}
	}()

	s.Log.Info("httpapi listening", zap.String("addr", s.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
