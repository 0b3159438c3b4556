package dot11

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
)

// Update is the set of observations a single dissected frame contributes
// to the device tracker. A frame that carries no useful station/AP
// identity (e.g. an ACK) yields a nil *Update.
type Update struct {
	Key        domain.DeviceKey
	Kind       domain.DeviceKind
	SSID       string
	ProbedSSID string
	BSSID      string
	Channel    int
	Frequency  int
	RSSI       int
	Bytes      int
	IsUplink   bool
	IsRetry    bool
	Standard   string
	IsWiFi6    bool
	IsWiFi7    bool
	IsRandomized bool
	RSN       *RSNInfo
	WPS       *WPSDetails
	CryptSet  CryptSet
	Timestamp time.Time

	// TypeHint, SSIDRecord and FromDataFrame feed the 802.11 device
	// sub-component fields (§3): the type_set bitmask contribution,
	// the SSID record to upsert (management frames only), and whether
	// this Update came from a data frame -- the only case a client is
	// recorded into its AP's client_map.
	TypeHint      domain.TypeSet
	SSIDRecord    *domain.SSIDRecord
	FromDataFrame bool
	IsFragment    bool

	DHCPHost   string
	DHCPVendor string
	CDPDevice  string
	CDPPort    string
	DroneID    *domain.DroneIDInfo
}

// Dissect extracts an Update from a captured 802.11 frame. It never
// returns an error for a frame it simply does not recognize -- only
// WalkIEs failures propagate, and even those still return whatever
// Update could be built from the frame header alone.
func Dissect(packet gopacket.Packet, now time.Time) (*Update, error) {
	dot11Layer := packet.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return nil, nil
	}
	d11, ok := dot11Layer.(*layers.Dot11)
	if !ok {
		return nil, nil
	}

	rssi := -100
	freq := 0
	if rt, ok := packet.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap); ok {
		rssi = int(rt.DBMAntennaSignal)
		freq = int(rt.ChannelFrequency)
	}

	switch d11.Type.MainType() {
	case layers.Dot11TypeMgmt:
		return dissectMgmt(packet, d11, rssi, freq, now)
	case layers.Dot11TypeData:
		return dissectData(packet, d11, rssi, freq, now), nil
	default:
		return nil, nil
	}
}

func dissectMgmt(packet gopacket.Packet, d11 *layers.Dot11, rssi, freq int, now time.Time) (*Update, error) {
	var ieData []byte
	kind := domain.KindUnknown
	isProbeReq := false
	var advertising domain.SSIDAdvertising

	isIBSS := false
	switch d11.Type {
	case layers.Dot11TypeMgmtBeacon:
		kind = domain.KindAP
		advertising = domain.SSIDAdvertisingBeacon
		if l, ok := packet.Layer(layers.LayerTypeDot11MgmtBeacon).(*layers.Dot11MgmtBeacon); ok {
			ieData = l.LayerPayload()
			isIBSS = l.Flags&0x0002 != 0 // capability-info IBSS bit
		}
	case layers.Dot11TypeMgmtProbeResp:
		kind = domain.KindAP
		advertising = domain.SSIDAdvertisingProbeResp
		if l, ok := packet.Layer(layers.LayerTypeDot11MgmtProbeResp).(*layers.Dot11MgmtProbeResp); ok {
			ieData = l.LayerPayload()
			isIBSS = l.Flags&0x0002 != 0
		}
	case layers.Dot11TypeMgmtProbeReq:
		kind = domain.KindClient
		isProbeReq = true
		advertising = domain.SSIDAdvertisingProbeReq
		if l := packet.Layer(layers.LayerTypeDot11MgmtProbeReq); l != nil {
			ieData = l.LayerPayload()
		}
	default:
		return nil, nil
	}

	mac := MACFromHW(d11.Address2)
	u := &Update{
		Key:       domain.DeviceKey{MAC: mac, PHY: domain.PHY80211},
		Kind:      kind,
		BSSID:     d11.Address3.String(),
		Channel:   frequencyToChannel(freq),
		Frequency: freq,
		RSSI:      rssi,
		Bytes:     len(packet.Data()),
		Timestamp: now,
		Standard:  "802.11g/a",
	}
	switch {
	case isIBSS:
		u.TypeHint = domain.TypeAdhoc
	case kind == domain.KindAP:
		u.TypeHint = domain.TypeAP
	default:
		u.TypeHint = domain.TypeClient
	}
	u.IsRandomized = isLocallyAdministered(d11.Address2)

	elems, err := WalkIEs(ieData)
	applyElements(u, elems, isProbeReq, advertising, now)
	if u.CryptSet == 0 {
		u.CryptSet = CryptNone
	}
	if err != nil {
		return u, err
	}
	return u, nil
}

func dissectData(packet gopacket.Packet, d11 *layers.Dot11, rssi, freq int, now time.Time) *Update {
	toDS := d11.Flags.ToDS()
	fromDS := d11.Flags.FromDS()

	var mac, bssid string
	var uplink bool
	typeHint := domain.TypeClient
	switch {
	case toDS && fromDS:
		// Four-address frame: a WDS link between two APs relaying
		// traffic for each other rather than a station associating
		// (§3 "type_set ... wired-bridge, WDS").
		mac = d11.Address2.String()
		bssid = d11.Address1.String()
		uplink = true
		typeHint = domain.TypeWDS
	case toDS && !fromDS:
		mac = d11.Address2.String()
		bssid = d11.Address1.String()
		uplink = true
	case !toDS && fromDS:
		if len(d11.Address1) > 0 && d11.Address1[0]&0x01 == 1 {
			return nil // multicast/broadcast destination, not a station
		}
		mac = d11.Address1.String()
		bssid = d11.Address2.String()
		uplink = false
	default:
		return nil
	}

	u := &Update{
		Key:           domain.DeviceKey{MAC: domain.MustMAC(mac), PHY: domain.PHY80211},
		Kind:          domain.KindClient,
		BSSID:         bssid,
		Channel:       frequencyToChannel(freq),
		Frequency:     freq,
		RSSI:          rssi,
		Bytes:         len(d11.Contents),
		IsUplink:      uplink,
		IsRetry:       d11.Flags.Retry(),
		IsRandomized:  isLocallyAdministered(byMACString(mac)),
		Timestamp:     now,
		FromDataFrame: true,
		TypeHint:      typeHint,
		// More-fragments set, or a nonzero fragment number, both mean
		// this frame is one piece of a larger MSDU (§3 "fragment
		// counter").
		IsFragment: d11.Flags.MoreFrag() || d11.FragmentNumber != 0,
	}
	applyDataFrameInfo(packet, u)
	return u
}

// applyDataFrameInfo decodes the higher-layer data-frame info the spec
// groups with DHCP/CDP fingerprinting (§3 "Packet... data-frame info
// (DHCP/CDP/etc.)"). Both layers only appear if gopacket's automatic
// decode chain reached them (LLC/SNAP -> IPv4/UDP -> DHCP, or a raw CDP
// frame); absence of either layer is the overwhelmingly common case and
// is not an error.
func applyDataFrameInfo(packet gopacket.Packet, u *Update) {
	if l := packet.Layer(layers.LayerTypeDHCPv4); l != nil {
		if dhcp, ok := l.(*layers.DHCPv4); ok {
			for _, opt := range dhcp.Options {
				switch opt.Type {
				case layers.DHCPOptHostname:
					u.DHCPHost = string(opt.Data)
				case layers.DHCPOptClassID:
					u.DHCPVendor = string(opt.Data)
				}
			}
		}
	}
	if l := packet.Layer(layers.LayerTypeCiscoDiscovery); l != nil {
		if cdp, ok := l.(*layers.CiscoDiscovery); ok {
			for _, v := range cdp.Values {
				switch v.Type {
				case layers.CiscoDiscoveryValueDeviceID:
					u.CDPDevice = string(v.Value)
				case layers.CiscoDiscoveryValuePortID:
					u.CDPPort = string(v.Value)
				}
			}
		}
	}
}

func applyElements(u *Update, elems []Element, isProbeReq bool, advertising domain.SSIDAdvertising, now time.Time) {
	var rates, extRates []float64
	var haveSSID bool
	var ssidBytes []byte

	for _, e := range elems {
		switch e.ID {
		case IESSID:
			ssid := string(e.Value)
			if len(e.Value) == 0 || e.Value[0] == 0x00 {
				ssid = ""
			}
			if isProbeReq {
				u.ProbedSSID = ssid
			} else {
				u.SSID = ssid
				haveSSID = true
				ssidBytes = append([]byte(nil), e.Value...)
			}
		case IESupportedRates:
			rates = ParseRates(e.Value)
		case IEExtendedRates:
			extRates = ParseRates(e.Value)
		case IEDSParamSet:
			if len(e.Value) > 0 {
				u.Channel = int(e.Value[0])
			}
		case IETIM:
			// presence alone marks a DTIM-capable beacon; no tracked
			// field names this in the spec's data model.
		case IECountry:
			// folded into the SSID record below once it is built.
		case IEQBSSLoad:
			// parsed for completeness (§4.7 minimum parser list); not
			// surfaced on the device sub-component, which the spec
			// does not name a QBSS field for.
			_ = ParseQBSSLoad(e.Value)
		case IERSN:
			info, set := ParseRSN(e.Value)
			u.RSN = info
			u.CryptSet |= set
		case IEHTCap:
			u.Standard = "802.11n"
		case IEVHTCap:
			u.Standard = "802.11ac"
		case IEFastBSS:
			u.Standard += "+ft"
		case IEExtensionTag:
			if len(e.Value) >= 1 {
				switch e.Value[0] {
				case ExtHECap:
					u.Standard = "802.11ax"
					u.IsWiFi6 = true
				case ExtEHTCap:
					u.Standard = "802.11be"
					u.IsWiFi7 = true
					u.IsWiFi6 = true
				}
			}
		case IEVendorSpecifc:
			applyVendorElement(u, e.Value)
		}
	}

	if !isProbeReq && haveSSID {
		u.SSIDRecord = buildSSIDRecord(ssidBytes, advertising, u.CryptSet, u.Channel, maxRate(rates, extRates), elems, now)
	}
}

// applyVendorElement sub-dispatches a vendor-specific IE (221) by OUI
// (§4.7 "vendor (221 with OUI/type sub-dispatch)").
func applyVendorElement(u *Update, val []byte) {
	oui, _, rest, ok := SplitVendorIE(val)
	if !ok {
		return
	}
	switch oui {
	case ouiMicrosoftWPS:
		if IsWPSVendorIE(val) {
			wps := ParseWPS(rest)
			u.WPS = &wps
			u.CryptSet |= CryptWPS
		}
	case ouiDJI:
		if info, ok := ParseDJIDroneID(rest); ok {
			u.DroneID = info
		}
	}
}

// buildSSIDRecord constructs the §3 "SSID record" for one beacon/
// probe-response observation: an empty SSID means cloaked, the beacon
// rate is the highest advertised rate, and a country IE (if present in
// the same element run) folds in its code and per-range triplets.
// BeaconCount carries this single observation's contribution (1 for a
// beacon, 0 for a probe response), matching invariant §8.2's "a single
// beacon ... beacon_count=1".
func buildSSIDRecord(ssid []byte, advertising domain.SSIDAdvertising, crypt CryptSet, channel int, rate float64, elems []Element, now time.Time) *domain.SSIDRecord {
	rec := &domain.SSIDRecord{
		Checksum:    domain.SSIDChecksum(ssid, advertising),
		SSID:        ssid,
		Length:      len(ssid),
		Advertising: advertising,
		CryptSet:    uint32(crypt),
		Cloaked:     len(ssid) == 0,
		FirstTime:   now,
		LastTime:    now,
		BeaconRate:  int(rate),
		Channel:     channel,
	}
	if advertising == domain.SSIDAdvertisingBeacon {
		rec.BeaconCount = 1
	}
	if e, ok := Find(elems, IECountry); ok {
		country := ParseCountry(e.Value)
		rec.Country = country.Code
		rec.Ranges = country.Ranges
	}
	return rec
}

func frequencyToChannel(freq int) int {
	switch {
	case freq >= 2412 && freq <= 2484:
		if freq == 2484 {
			return 14
		}
		return (freq - 2407) / 5
	case freq >= 5170 && freq <= 5825:
		return (freq - 5000) / 5
	case freq >= 5955 && freq <= 7115:
		return (freq - 5950) / 5
	default:
		return 0
	}
}
