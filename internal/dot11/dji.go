package dot11

import (
	"encoding/binary"

	"github.com/kismetwireless/kismet-sub014/internal/core/domain"
)

// djiSubcommandFlightRegInfo is the DroneID subcommand carrying flight
// telemetry and location; the companion 0x11 "flight purpose" subcommand
// carries only operator-entered strings and isn't decoded here.
const djiSubcommandFlightRegInfo = 0x10

// ParseDJIDroneID decodes the flight-telemetry variant of a DJI DroneID
// vendor IE payload (the bytes after the OUI+vendor-type prefix split
// off by SplitVendorIE), grounded on the kaitai
// dot11_ie_221_dji_droneid.droneid_flight_reg_info_t layout: 1-byte
// unk1, 1-byte unk2, 1-byte subcommand, then (for subcommand 0x10)
// version, a little-endian sequence number, a 2-byte state bitfield, a
// 16-byte ASCII serial number, and little-endian raw lon/lat scaled by
// 1/174533.
func ParseDJIDroneID(rest []byte) (*domain.DroneIDInfo, bool) {
	// rest begins at droneid_unk1: the 3-byte OUI and the vendor-type
	// byte were already split off by SplitVendorIE.
	if len(rest) < 3 {
		return nil, false
	}
	subcommand := rest[2]
	if subcommand != djiSubcommandFlightRegInfo {
		return nil, false
	}
	body := rest[3:]
	const headerLen = 1 + 2 + 2 // version + seq + state bitfield
	const serialLen = 16
	if len(body) < headerLen+serialLen+8 {
		return nil, false
	}
	serial := nullTerminatedASCII(body[headerLen : headerLen+serialLen])
	off := headerLen + serialLen
	rawLon := int32(binary.LittleEndian.Uint32(body[off : off+4]))
	rawLat := int32(binary.LittleEndian.Uint32(body[off+4 : off+8]))

	info := &domain.DroneIDInfo{
		SerialNumber: serial,
		Longitude:    float64(rawLon) / 174533.0,
		Latitude:     float64(rawLat) / 174533.0,
	}
	if len(body) >= off+10 {
		altRaw := int16(binary.LittleEndian.Uint16(body[off+8 : off+10]))
		info.AltitudeM = float64(altRaw)
	}
	return info, true
}

func nullTerminatedASCII(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
