// Package dot11 dissects 802.11 management and data frames captured by a
// datasource and extracts the tracked device record (C7).
package dot11

import (
	"fmt"

	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
	"github.com/kismetwireless/kismet-sub014/internal/kerrors"
)

// IE element ids used by the walker below. The set covers §4.7's minimum
// required parsers: SSID(0), supported rates(1), DS channel(3), TIM(5),
// country(7), QBSS load(11), extended rates(50), HT capabilities(45),
// VHT capabilities(191), fast-BSS(55), vendor(221).
const (
	IESSID            = 0
	IESupportedRates  = 1
	IEDSParamSet      = 3
	IETIM             = 5
	IECountry         = 7
	IEQBSSLoad        = 11
	IERSN             = 48
	IEExtendedRates   = 50
	IEMobilityDom     = 54
	IEFastBSS         = 55
	IERadioMeasure    = 70
	IEHTCap           = 45
	IEVHTCap          = 191
	IEExtendedCap     = 127
	IEVendorSpecifc   = 221
	IEExtensionTag    = 255

	ExtHECap  = 35
	ExtEHTCap = 108
)

// VendorOUI is a 3-byte organizationally unique identifier prefixing a
// vendor-specific IE's payload, used to sub-dispatch element 221 by
// vendor before interpreting the remaining bytes (§4.7 "vendor (221
// with OUI/type sub-dispatch)").
type VendorOUI [3]byte

var (
	ouiMicrosoftWPS = VendorOUI{0x00, 0x50, 0xf2}
	ouiDJI          = VendorOUI{0x26, 0x37, 0x12}
)

// SplitVendorIE splits a vendor-specific IE value into its OUI, vendor
// type byte, and remaining payload. Reports ok=false if the value is
// too short to carry an OUI+type prefix.
func SplitVendorIE(val []byte) (oui VendorOUI, vendorType byte, rest []byte, ok bool) {
	if len(val) < 4 {
		return VendorOUI{}, 0, nil, false
	}
	copy(oui[:], val[:3])
	return oui, val[3], val[4:], true
}

// Element is one decoded information element: id, raw value bytes.
type Element struct {
	ID    int
	Value []byte
}

// WalkIEs parses a concatenated IE byte stream into elements. It is
// bounded: a malformed trailing IE (truncated length) stops the walk and
// returns kerrors.ErrIEParse wrapping the elements parsed so far, rather
// than panicking or scanning out of bounds. The caller must still use the
// partial elements returned -- losing the tail of a frame is preferable
// to dropping the whole packet (§7 "dissector errors must not abort the
// packet chain").
func WalkIEs(data []byte) ([]Element, error) {
	var elems []Element
	offset := 0
	limit := len(data)

	for offset < limit {
		if offset+2 > limit {
			return elems, kerrors.New(kerrors.KindDissector, "dot11.WalkIEs",
				fmt.Errorf("%w: truncated IE header at offset %d", kerrors.ErrIEParse, offset))
		}
		id := int(data[offset])
		length := int(data[offset+1])
		offset += 2

		if offset+length > limit {
			return elems, kerrors.New(kerrors.KindDissector, "dot11.WalkIEs",
				fmt.Errorf("%w: IE %d declares length %d beyond buffer", kerrors.ErrIEParse, id, length))
		}

		val := make([]byte, length)
		copy(val, data[offset:offset+length])
		elems = append(elems, Element{ID: id, Value: val})
		offset += length
	}
	return elems, nil
}

// Find returns the first element with the given id.
func Find(elems []Element, id int) (Element, bool) {
	for _, e := range elems {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// ParseRates decodes a supported-rates (1) or extended-supported-rates
// (50) IE into Mbps values; rate bytes are in 500 kbps units with the
// basic-rate bit (0x80) masked off.
func ParseRates(val []byte) []float64 {
	rates := make([]float64, 0, len(val))
	for _, b := range val {
		rates = append(rates, float64(b&0x7f)/2.0)
	}
	return rates
}

// maxRate returns the highest rate in Mbps across a and b combined, or 0
// if both are empty.
func maxRate(a, b []float64) float64 {
	var max float64
	for _, r := range append(a, b...) {
		if r > max {
			max = r
		}
	}
	return max
}

// CountryInfo is the decoded content of an 802.11d country IE (7).
type CountryInfo struct {
	Code   string
	Ranges []domain.CountryRange
}

// ParseCountry decodes a country IE (element 7): 2-byte country code, a
// 1-byte regulatory environment, then a run of (first-channel,
// num-channels, max-power) triplets (grounded on the kaitai
// dot11_ie_7_country parser).
func ParseCountry(val []byte) CountryInfo {
	info := CountryInfo{}
	if len(val) < 2 {
		return info
	}
	info.Code = string(val[:2])
	offset := 3 // skip code + 1-byte environment
	for offset+3 <= len(val) {
		info.Ranges = append(info.Ranges, domain.CountryRange{
			StartChannel: int(val[offset]),
			Count:        int(val[offset+1]),
			TxPower:      int(val[offset+2]),
		})
		offset += 3
	}
	return info
}

// QBSSLoad is the decoded content of a QBSS load IE (11): station count,
// channel utilization, and available admission capacity.
type QBSSLoad struct {
	StationCount       int
	ChannelUtilization int
	AvailableCapacity  int
}

// ParseQBSSLoad decodes element 11 per 802.11-2020 §9.4.2.28.
func ParseQBSSLoad(val []byte) QBSSLoad {
	var q QBSSLoad
	if len(val) >= 2 {
		q.StationCount = int(val[0]) | int(val[1])<<8
	}
	if len(val) >= 3 {
		q.ChannelUtilization = int(val[2])
	}
	if len(val) >= 5 {
		q.AvailableCapacity = int(val[3]) | int(val[4])<<8
	}
	return q
}

// IsFastBSSElement reports whether an element id is the fast-BSS
// transition IE (55); fast transition capability is surfaced as a
// Standard-string suffix rather than a separate tracked field, since
// the spec's data model does not name a dedicated FT field.
func IsFastBSSElement(id int) bool { return id == IEFastBSS }
