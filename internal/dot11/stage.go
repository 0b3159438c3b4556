package dot11

import (
	"github.com/google/gopacket/layers"
	"github.com/kismetwireless/kismet-sub014/internal/channeltracker"
	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
	"github.com/kismetwireless/kismet-sub014/internal/devicetracker"
	"github.com/kismetwireless/kismet-sub014/internal/geo"
	"github.com/kismetwireless/kismet-sub014/internal/packetchain"
)

// UpdateComponent is the packetchain component id under which
// DissectHandler stashes its *Update for later-stage handlers to
// consume (mirrors Kismet's packetchain_comp_* convention).
var UpdateComponent = packetchain.RegisterComponent("dot11.update")

// DissectHandler is the DATA_DISSECT-stage handler: it runs Dissect on
// the raw capture and, if it yields an Update, attaches it to the
// packet for the TRACKER stage to pick up.
func DissectHandler() packetchain.Handler {
	return func(p *packetchain.Packet) error {
		u, err := Dissect(p.Raw, p.Timestamp)
		if u != nil {
			p.Set(UpdateComponent, u)
		}
		return err
	}
}

// TrackerHandler is the TRACKER-stage handler: it applies any
// dot11.Update attached by DissectHandler to the device registry and
// channel tracker.
func TrackerHandler(reg *devicetracker.Registry, chans *channeltracker.Tracker) packetchain.Handler {
	return func(p *packetchain.Packet) error {
		v, ok := p.Get(UpdateComponent)
		if !ok {
			return nil
		}
		u := v.(*Update)

		obs := ToObservation(u)
		if fix, ok := p.Get(packetchain.GPSComponent); ok {
			if loc, ok := fix.(geo.Location); ok {
				obs.HasLocation = true
				obs.Lat, obs.Lon, obs.Alt = loc.Latitude, loc.Longitude, loc.Altitude
			}
		}
		reg.Apply(obs)

		// A data frame from an associated client also updates its AP's
		// client_map (§3 "client_map: AP -> associated client MACs"),
		// applied as a second Observation keyed on the BSSID rather
		// than folded into the client's own record.
		if u.FromDataFrame && u.Kind == domain.KindClient && u.BSSID != "" {
			reg.Apply(devicetracker.Observation{
				Key:       domain.DeviceKey{MAC: domain.MustMAC(u.BSSID), PHY: domain.PHY80211},
				Timestamp: u.Timestamp,
				ClientMAC: u.Key.MAC.String(),
			})
		}

		if chans != nil {
			chans.Observe(u.Timestamp, u.Channel, u.Frequency, u.Bytes, u.Key.String())
		}
		return nil
	}
}

// HandshakeHandler is a DATA_DISSECT-stage handler that feeds EAPOL key
// frames to a HandshakeCapture sink, independent of DissectHandler (a
// frame can be both a tracked station's data frame and part of a
// 4-way handshake capture). It also applies the resulting handshake
// progression state to the station's device record.
func HandshakeHandler(hc *HandshakeCapture, reg *devicetracker.Registry) packetchain.Handler {
	return func(p *packetchain.Packet) error {
		if hc == nil || !IsEAPOLKey(p.Raw) {
			return nil
		}
		dot11Layer := p.Raw.Layer(layers.LayerTypeDot11)
		if dot11Layer == nil {
			return nil
		}
		d11, ok := dot11Layer.(*layers.Dot11)
		if !ok {
			return nil
		}
		_, stationMAC, state, _ := hc.ObserveEAPOL(p.Raw, d11)
		if reg != nil && state != domain.HandshakeNone {
			reg.Apply(devicetracker.Observation{
				Key:       domain.DeviceKey{MAC: domain.MustMAC(stationMAC), PHY: domain.PHY80211},
				Timestamp: p.Timestamp,
				Handshake: state,
			})
		}
		return nil
	}
}
