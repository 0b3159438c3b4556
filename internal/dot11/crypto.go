package dot11

// CryptSet is a bitmask classifying the cryptographic protections observed
// on a BSS (§4.7 "a bitmask cryptset with bits for WEP, WEP40/104, WPA,
// WPA-PSK/EAP/PEAP/LEAP/TTLS/TLS, WPA-migration, TKIP, AES-OCB, AES-CCM,
// WPS, and higher-layer markers"). The string form is left to the API
// layer, matching the spec's "the string form is derived by the API
// layer."
type CryptSet uint64

const (
	CryptNone CryptSet = 1 << iota
	CryptWEP
	CryptWEP40
	CryptWEP104
	CryptWPA
	CryptWPAMigration
	CryptPSK
	CryptEAP
	CryptPEAP
	CryptLEAP
	CryptTTLS
	CryptTLS
	CryptTKIP
	CryptAESOCB
	CryptAESCCM
	CryptWPA2
	CryptWPA3
	CryptWPS
	CryptMFPRequired
	CryptMFPCapable
	CryptISAKMP
	CryptPPTP
	CryptFortress
	CryptKeyguard
	CryptL3Unknown
)

func (c CryptSet) Has(bit CryptSet) bool { return c&bit != 0 }

// RSNInfo is the parsed content of an RSN (WPA2/WPA3) information element.
type RSNInfo struct {
	Version         uint16
	GroupCipher     string
	PairwiseCiphers []string
	AKMSuites       []string
	MFPRequired     bool
	MFPCapable      bool
}

var cipherSuiteNames = map[uint32]string{
	0x000fac01: "WEP-40",
	0x000fac02: "TKIP",
	0x000fac04: "CCMP-128",
	0x000fac05: "WEP-104",
	0x000fac08: "GCMP-128",
	0x000fac09: "GCMP-256",
	0x000fac0a: "CCMP-256",
}

// cipherSetBit maps a decoded cipher suite name onto the corresponding
// CryptSet detail bits (§4.7's enumerated WEP40/104, TKIP, AES-CCM set).
func cipherSetBit(name string) CryptSet {
	switch name {
	case "WEP-40":
		return CryptWEP | CryptWEP40
	case "WEP-104":
		return CryptWEP | CryptWEP104
	case "TKIP":
		return CryptTKIP
	case "CCMP-128", "CCMP-256":
		return CryptAESCCM
	default:
		return 0
	}
}

var akmSuiteNames = map[uint32]string{
	0x000fac01: "802.1X",
	0x000fac02: "PSK",
	0x000fac08: "SAE",
	0x000fac0b: "802.1X-SUITE-B",
	0x000fac0c: "802.1X-SUITE-B-192",
}

func suite32(b []byte) uint32 {
	if len(b) != 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ParseRSN decodes an RSN IE payload (element 48) per 802.11-2020 §9.4.2.25.
// Truncated optional trailers (capabilities, PMKIDs) are tolerated.
func ParseRSN(val []byte) (*RSNInfo, CryptSet) {
	info := &RSNInfo{}
	set := CryptWPA2

	if len(val) < 2 {
		return info, set
	}
	info.Version = uint16(val[0]) | uint16(val[1])<<8
	offset := 2

	if offset+4 <= len(val) {
		s := suite32(val[offset : offset+4])
		if name, ok := cipherSuiteNames[s]; ok {
			info.GroupCipher = name
			set |= cipherSetBit(name)
		}
		offset += 4
	}

	if offset+2 <= len(val) {
		count := int(val[offset]) | int(val[offset+1])<<8
		offset += 2
		for i := 0; i < count && offset+4 <= len(val); i++ {
			s := suite32(val[offset : offset+4])
			if name, ok := cipherSuiteNames[s]; ok {
				info.PairwiseCiphers = append(info.PairwiseCiphers, name)
				set |= cipherSetBit(name)
			}
			offset += 4
		}
	}

	if offset+2 <= len(val) {
		count := int(val[offset]) | int(val[offset+1])<<8
		offset += 2
		for i := 0; i < count && offset+4 <= len(val); i++ {
			s := suite32(val[offset : offset+4])
			if name, ok := akmSuiteNames[s]; ok {
				info.AKMSuites = append(info.AKMSuites, name)
				if name == "SAE" {
					set |= CryptWPA3
				} else if name == "PSK" {
					set |= CryptPSK
				}
				if name == "802.1X" || name == "802.1X-SUITE-B" || name == "802.1X-SUITE-B-192" {
					set |= CryptEAP
				}
			}
			offset += 4
		}
	}

	if offset+2 <= len(val) {
		capBits := uint16(val[offset]) | uint16(val[offset+1])<<8
		info.MFPRequired = capBits&0x0040 != 0
		info.MFPCapable = capBits&0x0080 != 0
		if info.MFPRequired {
			set |= CryptMFPRequired
		}
		if info.MFPCapable {
			set |= CryptMFPCapable
		}
	}

	return info, set
}

// WPSState is the coarse configured/unconfigured classification found in
// the Microsoft WPS vendor IE's state attribute (0x1044).
type WPSState int

const (
	WPSUnknown WPSState = iota
	WPSUnconfigured
	WPSConfigured
)

func (s WPSState) String() string {
	switch s {
	case WPSUnconfigured:
		return "unconfigured"
	case WPSConfigured:
		return "configured"
	default:
		return "unknown"
	}
}

// WPSDetails is the parsed content of a WPS vendor-specific IE.
type WPSDetails struct {
	State         WPSState
	Locked        bool
	Manufacturer  string
	Model         string
	DeviceName    string
	ConfigMethods uint16
}

const (
	wpsAttrManufacturer = 0x1021
	wpsAttrModelName    = 0x1023
	wpsAttrDeviceName   = 0x1011
	wpsAttrState        = 0x1044
	wpsAttrConfigMethod = 0x1008
)

// IsWPSVendorIE reports whether a vendor-specific IE value (element 221)
// carries the Microsoft WPS OUI+type prefix (00:50:F2:04).
func IsWPSVendorIE(val []byte) bool {
	return len(val) >= 4 && val[0] == 0x00 && val[1] == 0x50 && val[2] == 0xF2 && val[3] == 0x04
}

// ParseWPS decodes the TLV attribute stream following the WPS OUI+type
// prefix. Truncated trailing attributes stop the walk without error --
// WPS IEs routinely get fragmented or truncated by buggy APs.
func ParseWPS(data []byte) WPSDetails {
	var d WPSDetails
	offset := 0
	limit := len(data)

	for offset+4 <= limit {
		attrType := int(data[offset])<<8 | int(data[offset+1])
		attrLen := int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if offset+attrLen > limit {
			break
		}
		val := data[offset : offset+attrLen]

		switch attrType {
		case wpsAttrManufacturer:
			d.Manufacturer = string(val)
		case wpsAttrModelName:
			d.Model = string(val)
		case wpsAttrDeviceName:
			d.DeviceName = string(val)
		case wpsAttrState:
			if len(val) > 0 {
				switch val[0] {
				case 0x01:
					d.State = WPSUnconfigured
				case 0x02:
					d.State = WPSConfigured
				}
			}
		case wpsAttrConfigMethod:
			if len(val) == 2 {
				d.ConfigMethods = uint16(val[0])<<8 | uint16(val[1])
			}
		}
		offset += attrLen
	}
	return d
}
