// Package httpapi is the external interface collaborator (C10): it
// serializes datasource, device, channel, and SSID state into the
// dotted-namespace JSON shapes named in the core's HTTP contract and
// streams live updates over a websocket. Grounded on the teacher's
// internal/adapters/web/server (router/server wiring) and
// internal/adapters/web/websocket (broadcast loop), generalized from
// wmap's single-graph payload to the per-resource `.json` endpoints.
package httpapi

import (
	"time"

	"github.com/kismetwireless/kismet-sub014/internal/channeltracker"
	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
	"github.com/kismetwireless/kismet-sub014/internal/datasource"
)

// deviceJSON mirrors Kismet's dotted-namespace device field convention.
type deviceJSON struct {
	Key            string `json:"kismet.device.base.key"`
	Macaddr        string `json:"kismet.device.base.macaddr"`
	Phyname        string `json:"kismet.device.base.phyname"`
	Type           string `json:"kismet.device.base.type"`
	Name           string `json:"kismet.device.base.name"`
	Manufacturer   string `json:"kismet.device.base.manuf,omitempty"`
	Channel        int    `json:"kismet.device.base.channel"`
	Frequency      int    `json:"kismet.device.base.frequency"`
	SignalLastRSSI int    `json:"kismet.common.signal.last_signal"`
	SignalMinRSSI  int    `json:"kismet.common.signal.min_signal"`
	SignalMaxRSSI  int    `json:"kismet.common.signal.max_signal"`
	PacketsTotal   uint64 `json:"kismet.device.base.packets.total"`
	BytesTx        uint64 `json:"kismet.device.base.datasize.tx"`
	BytesRx        uint64 `json:"kismet.device.base.datasize.rx"`
	RetryCount     uint64 `json:"kismet.device.base.retry.count"`

	FirstTime int64 `json:"kismet.device.base.first_time"`
	LastTime  int64 `json:"kismet.device.base.last_time"`

	Location *locationJSON `json:"kismet.common.location,omitempty"`

	Dot11 *dot11DeviceJSON `json:"dot11.device,omitempty"`
}

type locationJSON struct {
	Lat    float64 `json:"kismet.common.location.lat"`
	Lon    float64 `json:"kismet.common.location.lon"`
	Alt    float64 `json:"kismet.common.location.alt"`
	MinLat float64 `json:"kismet.common.location.min_lat"`
	MaxLat float64 `json:"kismet.common.location.max_lat"`
	MinLon float64 `json:"kismet.common.location.min_lon"`
	MaxLon float64 `json:"kismet.common.location.max_lon"`
}

type dot11DeviceJSON struct {
	SSID           string   `json:"dot11.device.last_beaconed_ssid,omitempty"`
	BSSID          string   `json:"dot11.device.bssid,omitempty"`
	Standard       string   `json:"dot11.device.standard,omitempty"`
	IsWiFi6        bool     `json:"dot11.device.wifi6,omitempty"`
	IsWiFi7        bool     `json:"dot11.device.wifi7,omitempty"`
	IsRandomized   bool     `json:"dot11.device.mac_randomized,omitempty"`
	GroupCipher    string   `json:"dot11.device.crypt_group,omitempty"`
	PairwiseCipher []string `json:"dot11.device.crypt_pairwise,omitempty"`
	AKM            []string `json:"dot11.device.crypt_akm,omitempty"`
	MFPRequired    bool     `json:"dot11.device.mfp_required,omitempty"`
	MFPCapable     bool     `json:"dot11.device.mfp_capable,omitempty"`
	WPSState       string   `json:"dot11.device.wps_state,omitempty"`
	WPSManuf       string   `json:"dot11.device.wps_manuf,omitempty"`
	WPSModel       string   `json:"dot11.device.wps_model,omitempty"`
	ProbedSSIDs    []string `json:"dot11.device.probed_ssid_map,omitempty"`
}

func toDeviceJSON(snap domain.Snapshot, manufacturer string) deviceJSON {
	out := deviceJSON{
		Key:            snap.Key.String(),
		Macaddr:        snap.Key.MAC.String(),
		Phyname:        snap.Key.PHY.String(),
		Type:           snap.Kind.String(),
		Name:           snap.SSID,
		Manufacturer:   manufacturer,
		Channel:        snap.Channel,
		Frequency:      snap.Frequency,
		SignalLastRSSI: snap.RSSILast,
		SignalMinRSSI:  snap.RSSIMin,
		SignalMaxRSSI:  snap.RSSIMax,
		PacketsTotal:   snap.PacketCount,
		BytesTx:        snap.DataBytesTx,
		BytesRx:        snap.DataBytesRx,
		RetryCount:     snap.RetryCount,
		FirstTime:      snap.FirstTime.Unix(),
		LastTime:       snap.LastTime.Unix(),
	}

	if snap.HasLocation {
		out.Location = &locationJSON{
			Lat: snap.LastLat, Lon: snap.LastLon, Alt: snap.LastAlt,
			MinLat: snap.MinLat, MaxLat: snap.MaxLat,
			MinLon: snap.MinLon, MaxLon: snap.MaxLon,
		}
	}

	if snap.Key.PHY == domain.PHY80211 {
		d := &dot11DeviceJSON{
			SSID:         snap.SSID,
			BSSID:        snap.ConnectedBSSID,
			Standard:     snap.Standard,
			IsWiFi6:      snap.IsWiFi6,
			IsWiFi7:      snap.IsWiFi7,
			IsRandomized: snap.IsRandomized,
		}
		if snap.RSN != nil {
			d.GroupCipher = snap.RSN.GroupCipher
			d.PairwiseCipher = snap.RSN.PairwiseCiphers
			d.AKM = snap.RSN.AKMSuites
			d.MFPRequired = snap.RSN.MFPRequired
			d.MFPCapable = snap.RSN.MFPCapable
		}
		if snap.WPS != nil {
			d.WPSState = snap.WPS.State
			d.WPSManuf = snap.WPS.Manufacturer
			d.WPSModel = snap.WPS.Model
		}
		for ssid := range snap.ProbedSSIDs {
			d.ProbedSSIDs = append(d.ProbedSSIDs, ssid)
		}
		out.Dot11 = d
	}

	return out
}

type channelJSON struct {
	Channel            int       `json:"kismet.channeltracker.channel"`
	Frequency          int       `json:"kismet.channeltracker.frequency"`
	DeviceCount        int       `json:"kismet.channeltracker.devices"`
	PacketsLastSecond  []float64 `json:"kismet.channeltracker.packets_rrd"`
	BytesLastSecond    []float64 `json:"kismet.channeltracker.bytes_rrd"`
}

func toChannelJSON(s channeltracker.Snapshot) channelJSON {
	return channelJSON{
		Channel:           s.Channel,
		Frequency:         s.Frequency,
		DeviceCount:       s.DeviceCount,
		PacketsLastSecond: s.PacketsLastSecond,
		BytesLastSecond:   s.BytesLastSecond,
	}
}

type sourceJSON struct {
	UUID       string `json:"kismet.datasource.uuid"`
	Definition string `json:"kismet.datasource.definition"`
	Type       string `json:"kismet.datasource.type"`
	State      string `json:"kismet.datasource.running"`
	Error      string `json:"kismet.datasource.error,omitempty"`
}

func toSourceJSON(uuid string, inst *datasource.Instance) sourceJSON {
	out := sourceJSON{
		UUID:       uuid,
		Definition: inst.Definition,
		Type:       inst.Type,
		State:      inst.State().String(),
	}
	if err := inst.Err(); err != nil {
		out.Error = err.Error()
	}
	return out
}

type ssidViewJSON struct {
	SSID      string `json:"dot11.ssid.ssid"`
	FirstTime int64  `json:"dot11.ssid.first_time"`
	LastTime  int64  `json:"dot11.ssid.last_time"`
}

func nowUnix() int64 { return time.Now().Unix() }
