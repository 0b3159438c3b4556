package channeltracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ObserveAccumulatesPerChannel(t *testing.T) {
	tr := New()
	now := time.Now()

	tr.Observe(now, 6, 2437, 100, "aa:bb:cc:dd:ee:01/1")
	tr.Observe(now, 6, 2437, 50, "aa:bb:cc:dd:ee:02/1")
	tr.Observe(now, 11, 2462, 200, "aa:bb:cc:dd:ee:01/1")

	snaps := tr.Channels()
	require.Len(t, snaps, 2)
	assert.Equal(t, 6, snaps[0].Channel)
	assert.Equal(t, 2, snaps[0].DeviceCount)
	assert.Equal(t, 11, snaps[1].Channel)
	assert.Equal(t, 1, snaps[1].DeviceCount)
}
