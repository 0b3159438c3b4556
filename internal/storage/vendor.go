package storage

import (
	"context"
	"strings"
)

// VendorModel is one IEEE OUI registry row: a 6-hex-digit MAC prefix to
// the manufacturer name it was assigned to (§3's "manufacturer lookup
// string"). Adapted from the teacher's OUIDatabase, which kept its own
// separate sqlite connection for this; folded into the shared Store
// instead since both are small, read-mostly tables.
type VendorModel struct {
	Prefix string `gorm:"primaryKey"` // uppercase hex, no separators, e.g. "001A11"
	Vendor string
}

func normalizePrefix(mac string) string {
	mac = strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(mac, ":", ""), "-", ""))
	if len(mac) < 6 {
		return ""
	}
	return mac[:6]
}

// LookupVendor resolves a MAC address (any of "aa:bb:cc:dd:ee:ff",
// "aabbccddeeff", or "aa-bb-cc-dd-ee-ff") to its OUI-registered
// manufacturer name, the empty string if unknown.
func (s *Store) LookupVendor(ctx context.Context, mac string) (string, bool) {
	prefix := normalizePrefix(mac)
	if prefix == "" {
		return "", false
	}
	var row VendorModel
	if err := s.db.WithContext(ctx).First(&row, "prefix = ?", prefix).Error; err != nil {
		return "", false
	}
	return row.Vendor, true
}

// SeedVendors bulk-upserts an OUI prefix -> vendor map, e.g. loaded from
// the IEEE's published registry at startup. A nil or empty map is a
// no-op.
func (s *Store) SeedVendors(ctx context.Context, entries map[string]string) error {
	for prefix, vendor := range entries {
		row := VendorModel{Prefix: normalizePrefix(prefix), Vendor: vendor}
		if row.Prefix == "" {
			continue
		}
		if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
