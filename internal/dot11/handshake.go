package dot11

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
)

const (
	handshakeSessionTimeout = 5 * time.Minute
	handshakeCleanupPeriod  = 1 * time.Minute
	maxFramesPerSession     = 20
)

// HandshakeSession tracks the EAPOL frames seen for one (BSSID, station)
// pair while a 4-way handshake is in progress.
type HandshakeSession struct {
	BSSID      string
	StationMAC string
	ESSID      string
	Frames     []gopacket.Packet
	LastUpdate time.Time
	Captured   map[uint8]bool // message number (1-4) -> seen
	Nacked     bool
	SavedCount int
}

// State derives the device sub-component's EAPOL handshake progression
// enum (§3 "EAPOL handshake progression enum") from the set of key
// messages captured so far: the highest-numbered message seen, M4
// meaning the exchange completed, or Nacked overriding all of it once a
// key-error frame has been seen.
func (s *HandshakeSession) State() domain.HandshakeState {
	if s.Nacked {
		return domain.HandshakeNacked
	}
	switch {
	case s.Captured[4]:
		return domain.HandshakeComplete
	case s.Captured[3]:
		return domain.HandshakeM3
	case s.Captured[2]:
		return domain.HandshakeM2
	case s.Captured[1]:
		return domain.HandshakeM1
	default:
		return domain.HandshakeNone
	}
}

// HandshakeCapture records in-progress and completed WPA/WPA2 4-way
// handshakes to disk as pcap files, so an operator can hand them to an
// offline key-recovery tool. It never attempts to crack or decrypt
// anything itself (§1 non-goals: no payload interpretation).
type HandshakeCapture struct {
	mu           sync.RWMutex
	baseDir      string
	bssidToESSID map[string]string
	sessions     map[string]*HandshakeSession
	stop         chan struct{}
}

// NewHandshakeCapture creates a capture sink rooted at baseDir.
func NewHandshakeCapture(baseDir string) *HandshakeCapture {
	_ = os.MkdirAll(baseDir, 0o755)
	hc := &HandshakeCapture{
		baseDir:      baseDir,
		bssidToESSID: make(map[string]string),
		sessions:     make(map[string]*HandshakeSession),
		stop:         make(chan struct{}),
	}
	go hc.cleanupLoop()
	return hc
}

func (hc *HandshakeCapture) cleanupLoop() {
	ticker := time.NewTicker(handshakeCleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hc.expireStale()
		case <-hc.stop:
			return
		}
	}
}

// Close stops the background cleanup goroutine.
func (hc *HandshakeCapture) Close() {
	close(hc.stop)
}

func (hc *HandshakeCapture) expireStale() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	now := time.Now()
	for key, s := range hc.sessions {
		if now.Sub(s.LastUpdate) > handshakeSessionTimeout {
			delete(hc.sessions, key)
		}
	}
}

// LearnSSID records a BSSID -> SSID mapping observed from a beacon, used
// to name saved handshake files.
func (hc *HandshakeCapture) LearnSSID(bssid, ssid string) {
	if ssid == "" {
		return
	}
	hc.mu.Lock()
	hc.bssidToESSID[bssid] = ssid
	hc.mu.Unlock()
}

// ObserveEAPOL inspects one EAPOL-Key frame, updates the session it
// belongs to, and reports the BSSID/station pair plus the handshake
// progression state after this frame (§3 "EAPOL handshake progression
// enum"). wrote reports whether a new handshake file was written (i.e.
// this frame completed a new milestone in the 4-way exchange).
func (hc *HandshakeCapture) ObserveEAPOL(packet gopacket.Packet, d11 *layers.Dot11) (bssid, stationMAC string, state domain.HandshakeState, wrote bool) {
	bssid = d11.Address3.String()
	src := d11.Address2.String()
	dst := d11.Address1.String()

	stationMAC = dst
	if src != bssid {
		stationMAC = src
	}

	key := bssid + "_" + stationMAC

	hc.mu.Lock()
	defer hc.mu.Unlock()

	session, ok := hc.sessions[key]
	if !ok {
		essid := hc.bssidToESSID[bssid]
		if essid == "" {
			essid = "unknown"
		}
		session = &HandshakeSession{
			BSSID:      bssid,
			StationMAC: stationMAC,
			ESSID:      essid,
			Captured:   make(map[uint8]bool),
		}
		hc.sessions[key] = session
	}
	if session.ESSID == "unknown" {
		if v, ok := hc.bssidToESSID[bssid]; ok {
			session.ESSID = v
		}
	}

	if msg, nacked := detectKeyMessage(packet, src == bssid); msg > 0 || nacked {
		if nacked {
			session.Nacked = true
		} else {
			session.Captured[msg] = true
		}
	}
	if len(session.Frames) < maxFramesPerSession {
		session.Frames = append(session.Frames, packet)
	}
	session.LastUpdate = time.Now()

	wrote = false
	if session.Captured[1] && session.Captured[2] {
		if n := len(session.Captured); n > session.SavedCount {
			hc.save(session)
			session.SavedCount = n
			wrote = true
		}
	}
	return bssid, stationMAC, session.State(), wrote
}

func (hc *HandshakeCapture) save(session *HandshakeSession) {
	name := fmt.Sprintf("%s_%s_%s.pcap",
		sanitizeFilename(session.BSSID), sanitizeFilename(session.ESSID), sanitizeFilename(session.StationMAC))
	path := filepath.Join(hc.baseDir, name)

	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	_ = w.WriteFileHeader(65536, layers.LinkTypeIEEE80211Radio)
	for _, pkt := range session.Frames {
		_ = w.WritePacket(pkt.Metadata().CaptureInfo, pkt.Data())
	}
}

// HasHandshake reports whether a full M1+M2 pair has been captured for
// the given BSSID.
func (hc *HandshakeCapture) HasHandshake(bssid string) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	for _, s := range hc.sessions {
		if s.BSSID == bssid && s.Captured[1] && s.Captured[2] {
			return true
		}
	}
	return false
}

// eapolKeyInfoError is the Error bit (bit 10) of the EAPOL Key Info
// field (IEEE 802.11-2020 §12.7.2, figure 12-34): set by a station to
// signal a MIC or key-install failure, the frame-level signal behind
// the handshake's "nacked" state.
const eapolKeyInfoError = 0x0400

// detectKeyMessage classifies an EAPOL-Key frame as handshake message
// 1-4 using the Key Info bitfield (Mic/Ack) plus Key Data Length as a
// tiebreaker between M2 and M4, and reports nacked when the Error bit
// is set regardless of which message number it otherwise looks like.
func detectKeyMessage(packet gopacket.Packet, fromAP bool) (msg uint8, nacked bool) {
	eapolLayer := packet.Layer(layers.LayerTypeEAPOL)
	if eapolLayer == nil {
		return 0, false
	}
	eapol, ok := eapolLayer.(*layers.EAPOL)
	if !ok || eapol.Type != layers.EAPOLTypeKey {
		return 0, false
	}

	payload := eapol.LayerPayload()
	if len(payload) < 3 {
		return 0, false
	}
	keyInfo := binary.BigEndian.Uint16(payload[1:3])
	if keyInfo&eapolKeyInfoError != 0 {
		return 0, true
	}
	hasMic := keyInfo&0x0100 != 0
	hasAck := keyInfo&0x0080 != 0

	if !hasMic {
		return 1, false
	}
	if hasAck {
		return 3, false
	}
	if len(payload) >= 95 {
		if binary.BigEndian.Uint16(payload[93:95]) > 0 {
			return 2, false
		}
		return 4, false
	}
	return 4, false
}

func sanitizeFilename(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// IsEAPOLKey reports whether packet carries an EAPOL-Key frame.
func IsEAPOLKey(packet gopacket.Packet) bool {
	if l := packet.Layer(layers.LayerTypeEAPOL); l != nil {
		if eapol, ok := l.(*layers.EAPOL); ok {
			return eapol.Type == layers.EAPOLTypeKey
		}
	}
	return false
}
