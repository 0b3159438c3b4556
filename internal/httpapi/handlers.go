package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"kismet.error": msg})
}

// parseDeviceKey accepts the "macaddr/phy" form produced by
// domain.DeviceKey.String().
func parseDeviceKey(s string) (domain.DeviceKey, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return domain.DeviceKey{}, domain.ErrInvalidMAC
	}
	mac, err := domain.NewMAC(parts[0])
	if err != nil {
		return domain.DeviceKey{}, err
	}
	phy, err := strconv.Atoi(parts[1])
	if err != nil {
		return domain.DeviceKey{}, err
	}
	return domain.DeviceKey{MAC: mac, PHY: domain.PHY(phy)}, nil
}

// --- datasource endpoints ---

func (s *Server) handleAllSources(w http.ResponseWriter, r *http.Request) {
	uuids := s.Sources.List()
	out := make([]sourceJSON, 0, len(uuids))
	for _, uuid := range uuids {
		inst, ok := s.Sources.Get(uuid)
		if !ok {
			continue
		}
		out = append(out, toSourceJSON(uuid, inst))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListInterfaces returns the sorted UUIDs of the source instances
// currently registered with the tracker. It does not ask any driver to
// enumerate host interfaces and does not list prototypes.
func (s *Server) handleListInterfaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sources.List())
}

func (s *Server) handleSourceClose(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	if err := s.Sources.Close(uuid); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kismet.datasource.uuid": uuid})
}

func (s *Server) handleSourceOpen(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	definition := r.URL.Query().Get("definition")
	if definition == "" {
		writeError(w, http.StatusBadRequest, "missing definition")
		return
	}
	inst, err := s.Sources.Open(r.Context(), uuid, definition)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSourceJSON(uuid, inst))
}

func (s *Server) handleSourceSetChannel(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	inst, ok := s.Sources.Get(uuid)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}
	channel, err := strconv.Atoi(r.URL.Query().Get("channel"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or malformed channel")
		return
	}
	inst.SetChannels([]int{channel}, 0, 0)
	writeJSON(w, http.StatusOK, toSourceJSON(uuid, inst))
}

func (s *Server) handleSourceSetHop(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	inst, ok := s.Sources.Get(uuid)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}
	rateMS, _ := strconv.Atoi(r.URL.Query().Get("rate_ms"))
	if rateMS <= 0 {
		rateMS = 500
	}
	var channels []int
	for _, c := range strings.Split(r.URL.Query().Get("channels"), ",") {
		if c == "" {
			continue
		}
		if ch, err := strconv.Atoi(c); err == nil {
			channels = append(channels, ch)
		}
	}
	inst.SetChannels(channels, time.Duration(rateMS)*time.Millisecond, 0)
	go inst.RunHopLoop()
	writeJSON(w, http.StatusOK, toSourceJSON(uuid, inst))
}

// --- device endpoints ---

func (s *Server) handleDot11Devices(w http.ResponseWriter, r *http.Request) {
	all := s.Devices.All()
	out := make([]deviceJSON, 0, len(all))
	for _, snap := range all {
		if snap.Key.PHY != domain.PHY80211 {
			continue
		}
		out = append(out, toDeviceJSON(snap, s.lookupVendor(r.Context(), snap)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeviceByKey(w http.ResponseWriter, r *http.Request) {
	key, err := parseDeviceKey(mux.Vars(r)["key"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed key")
		return
	}
	snap, ok := s.Devices.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, toDeviceJSON(snap, s.lookupVendor(r.Context(), snap)))
}

// lookupVendor resolves a device's OUI manufacturer name from the
// vendor store, if one is configured. Absent a store (e.g. in tests),
// every device simply has no manufacturer field.
func (s *Server) lookupVendor(ctx context.Context, snap domain.Snapshot) string {
	if s.Vendors == nil {
		return ""
	}
	vendor, _ := s.Vendors.LookupVendor(ctx, snap.Key.MAC.String())
	return vendor
}

// handleDevicePcap serves the file "<name>.pcapng" from PcapDir, where
// name is taken from the URL. The device key in the path does not
// select or filter the file, and no per-device filtering of frames is
// done here.
func (s *Server) handleDevicePcap(w http.ResponseWriter, r *http.Request) {
	if s.PcapDir == "" {
		writeError(w, http.StatusNotFound, "no capture store configured")
		return
	}
	name := filepath.Base(mux.Vars(r)["name"]) + ".pcapng"
	path := filepath.Join(s.PcapDir, name)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.PcapDir)) {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	http.ServeFile(w, r, path)
}

// --- channel/ssid endpoints ---

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	chans := s.Channels.Channels()
	out := make([]channelJSON, 0, len(chans))
	for _, c := range chans {
		out = append(out, toChannelJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSSIDViews(w http.ResponseWriter, r *http.Request) {
	ssids := s.Devices.SSIDs()
	now := nowUnix()
	out := make([]ssidViewJSON, 0, len(ssids))
	for _, ssid := range ssids {
		out = append(out, ssidViewJSON{SSID: ssid, FirstTime: now, LastTime: now})
	}
	writeJSON(w, http.StatusOK, out)
}
