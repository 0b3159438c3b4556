package rrd

import "math"

// coordScale fixes lat/lon/alt to an integer-scaled representation,
// avoiding float accumulation drift across millions of cheap updates
// (§4.2's "integer-scaled" location aggregator requirement).
const coordScale = 1e7 // ~1.1cm resolution at the equator

// LocationAggregator tracks a bounding box and a cascading history of
// observed points for one device, at three retention tiers: the most
// recent 100 points kept in full, decimated into a 10,000-point
// medium-term history, further decimated into a 1,000,000-point
// long-term history. Each tier is a fixed ring; once full, the oldest
// point is overwritten.
type LocationAggregator struct {
	minLat, minLon, maxLat, maxLon int64
	minAlt, maxAlt                 int64
	hasBounds                      bool

	recent   [100]point
	medium   [10000]point
	long     [1000000]point
	nRecent  int
	nMedium  int
	nLong    int
	wRecent  int
	wMedium  int
	wLong    int
	mediumEvery int // decimation stride into medium tier
	longEvery   int // decimation stride into long tier
	count       int64
}

type point struct {
	lat, lon, alt int64
}

// NewLocationAggregator creates an aggregator with 1:10 decimation
// between tiers (every 10th recent point feeds medium, every 10th medium
// point feeds long), feeding tiers whose capacities are 100, 10,000 and
// 1,000,000 points.
func NewLocationAggregator() *LocationAggregator {
	return &LocationAggregator{mediumEvery: 10, longEvery: 10}
}

func scale(f float64) int64 { return int64(math.Round(f * coordScale)) }
func unscale(i int64) float64 { return float64(i) / coordScale }

// Add records one (lat, lon, alt) observation.
func (l *LocationAggregator) Add(lat, lon, alt float64) {
	p := point{lat: scale(lat), lon: scale(lon), alt: scale(alt)}

	if !l.hasBounds {
		l.minLat, l.maxLat = p.lat, p.lat
		l.minLon, l.maxLon = p.lon, p.lon
		l.minAlt, l.maxAlt = p.alt, p.alt
		l.hasBounds = true
	} else {
		l.minLat = minI64(l.minLat, p.lat)
		l.maxLat = maxI64(l.maxLat, p.lat)
		l.minLon = minI64(l.minLon, p.lon)
		l.maxLon = maxI64(l.maxLon, p.lon)
		l.minAlt = minI64(l.minAlt, p.alt)
		l.maxAlt = maxI64(l.maxAlt, p.alt)
	}

	l.recent[l.wRecent%100] = p
	l.wRecent++
	if l.nRecent < 100 {
		l.nRecent++
	}

	l.count++
	if l.count%int64(l.mediumEvery) == 0 {
		l.medium[l.wMedium%10000] = p
		l.wMedium++
		if l.nMedium < 10000 {
			l.nMedium++
		}

		if l.wMedium%l.longEvery == 0 {
			l.long[l.wLong%1000000] = p
			l.wLong++
			if l.nLong < 1000000 {
				l.nLong++
			}
		}
	}
}

// BoundingBox is the min/max lat/lon/alt observed so far, in
// floating-point degrees/meters.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	MinAlt, MaxAlt float64
	Valid          bool
}

// Bounds returns the current bounding box.
func (l *LocationAggregator) Bounds() BoundingBox {
	if !l.hasBounds {
		return BoundingBox{}
	}
	return BoundingBox{
		MinLat: unscale(l.minLat), MaxLat: unscale(l.maxLat),
		MinLon: unscale(l.minLon), MaxLon: unscale(l.maxLon),
		MinAlt: unscale(l.minAlt), MaxAlt: unscale(l.maxAlt),
		Valid: true,
	}
}

// RecentCount, MediumCount, LongCount report how many points each tier
// currently holds (capped at the tier's capacity).
func (l *LocationAggregator) RecentCount() int { return l.nRecent }
func (l *LocationAggregator) MediumCount() int { return l.nMedium }
func (l *LocationAggregator) LongCount() int   { return l.nLong }

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
