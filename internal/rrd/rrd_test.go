package rrd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRRD_SumAggregatesWithinSecond(t *testing.T) {
	r := New(AggSum)
	base := time.Unix(1000, 0)
	r.Add(base, 1)
	r.Add(base, 2)
	r.Add(base.Add(500*time.Millisecond), 3)

	vals := r.LastSeconds(1)
	assert.Equal(t, []float64{6}, vals)
}

func TestRRD_ExtremeMaxTracksPeak(t *testing.T) {
	r := New(AggExtremeMax)
	base := time.Unix(2000, 0)
	r.Add(base, -60)
	r.Add(base, -30)
	r.Add(base, -90)

	vals := r.LastSeconds(1)
	assert.Equal(t, []float64{-30}, vals)
}

func TestRRD_RollsSecondsIntoMinutes(t *testing.T) {
	r := New(AggSum)
	base := time.Unix(0, 0).Truncate(time.Minute)
	r.Add(base, 5)
	r.Add(base.Add(time.Minute), 7) // forces roll of the previous minute's second

	mins := r.LastMinutes(2)
	assert.Equal(t, 2, len(mins))
}

func TestLocationAggregator_BoundingBox(t *testing.T) {
	l := NewLocationAggregator()
	l.Add(40.0, -70.0, 10)
	l.Add(41.0, -71.0, 20)
	l.Add(39.5, -69.5, 5)

	b := l.Bounds()
	assert.True(t, b.Valid)
	assert.InDelta(t, 39.5, b.MinLat, 0.0001)
	assert.InDelta(t, 41.0, b.MaxLat, 0.0001)
	assert.InDelta(t, -71.0, b.MinLon, 0.0001)
	assert.InDelta(t, -69.5, b.MaxLon, 0.0001)
	assert.Equal(t, 3, l.RecentCount())
}

func TestLocationAggregator_DecimatesIntoMediumTier(t *testing.T) {
	l := NewLocationAggregator()
	for i := 0; i < 25; i++ {
		l.Add(float64(i), float64(i), 0)
	}
	assert.Equal(t, 2, l.MediumCount()) // every 10th point: i=9, i=19
}
