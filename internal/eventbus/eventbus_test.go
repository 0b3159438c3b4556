package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToSubscribers(t *testing.T) {
	b := New()
	var mu sync.Mutex
	var got []string

	b.Subscribe(TopicDeviceAdded, func(payload interface{}) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, payload.(string))
	})

	b.Publish(TopicDeviceAdded, "aa:bb:cc:dd:ee:ff")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)
}

func TestBus_UnrelatedTopicNotDelivered(t *testing.T) {
	b := New()
	delivered := false
	b.Subscribe(TopicDeviceRemoved, func(payload interface{}) { delivered = true })

	b.Publish(TopicDeviceAdded, "x")
	time.Sleep(10 * time.Millisecond)
	assert.False(t, delivered)
}
