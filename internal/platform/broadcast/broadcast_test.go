package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesLatest(t *testing.T) {
	b := New(1)
	b.Publish(2)

	ch, cancel := b.Subscribe()
	defer cancel()

	assert.Equal(t, 2, <-ch)
}

func TestSlowSubscriberSeesOnlyNewest(t *testing.T) {
	b := New(0)
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}

	assert.Equal(t, 5, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := New("a")
	ch, cancel := b.Subscribe()
	<-ch
	require.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())
}

func TestCloseDropsLaterPublishes(t *testing.T) {
	b := New(1)
	ch, cancel := b.Subscribe()
	defer cancel()
	<-ch

	b.Close()
	b.Publish(9)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 1, b.Latest())

	late, _ := b.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
