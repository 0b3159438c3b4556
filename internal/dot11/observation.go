package dot11

import (
	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
	"github.com/kismetwireless/kismet-sub014/internal/devicetracker"
)

// ToObservation converts a dissected frame Update into the
// devicetracker's phy-agnostic Observation shape, the boundary named in
// devicetracker's own doc comment ("dissector-specific shapes ...
// converted into this at the packetchain's TRACKER stage").
func ToObservation(u *Update) devicetracker.Observation {
	obs := devicetracker.Observation{
		Key:          u.Key,
		Kind:         u.Kind,
		SSID:         u.SSID,
		ProbedSSID:   u.ProbedSSID,
		BSSID:        u.BSSID,
		Channel:      u.Channel,
		Frequency:    u.Frequency,
		RSSI:         u.RSSI,
		Bytes:        u.Bytes,
		IsUplink:     u.IsUplink,
		IsRetry:      u.IsRetry,
		Standard:     u.Standard,
		IsWiFi6:      u.IsWiFi6,
		IsWiFi7:      u.IsWiFi7,
		IsRandomized: u.IsRandomized,
		Timestamp:    u.Timestamp,

		TypeHint:   u.TypeHint,
		SSIDRecord: u.SSIDRecord,
		IsFragment: u.IsFragment,
		DHCPHost:   u.DHCPHost,
		DHCPVendor: u.DHCPVendor,
		CDPDevice:  u.CDPDevice,
		CDPPort:    u.CDPPort,
		DroneID:    u.DroneID,
	}
	if u.RSN != nil {
		obs.RSN = &domain.RSNSnapshot{
			GroupCipher:     u.RSN.GroupCipher,
			PairwiseCiphers: u.RSN.PairwiseCiphers,
			AKMSuites:       u.RSN.AKMSuites,
			MFPRequired:     u.RSN.MFPRequired,
			MFPCapable:      u.RSN.MFPCapable,
		}
	}
	if u.WPS != nil {
		obs.WPS = &domain.WPSSnapshot{
			State:        u.WPS.State.String(),
			Manufacturer: u.WPS.Manufacturer,
			Model:        u.WPS.Model,
			DeviceName:   u.WPS.DeviceName,
		}
	}
	return obs
}
