package dot11

import (
	"net"

	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
)

// MACFromHW converts a gopacket net.HardwareAddr into a domain.MAC,
// collapsing parse failures to the sentinel error MAC rather than
// propagating an error through the packet chain for a cosmetic field.
func MACFromHW(hw net.HardwareAddr) domain.MAC {
	mac, err := domain.MACFromBytes(hw)
	if err != nil {
		return domain.ErrorMAC()
	}
	return mac
}

func byMACString(s string) net.HardwareAddr {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return nil
	}
	return hw
}

func isLocallyAdministered(hw net.HardwareAddr) bool {
	if len(hw) == 0 {
		return false
	}
	return hw[0]&0x02 != 0
}
