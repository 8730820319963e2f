package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLeaseBeginEnd(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := r.For("a")
	b := r.For("b")

	a.Begin("Harbour Walk")
	a.Begin("ignored")
	b.Begin("Old Town")
	assert.Equal(t, 2, r.Count())

	leases := r.Active()
	require.Len(t, leases, 2)
	for _, l := range leases {
		if l.Key == "a" {
			assert.Equal(t, "Harbour Walk", l.RouteName)
		}
	}

	a.End()
	a.End()
	assert.Equal(t, 1, r.Count())
	b.End()
	assert.Equal(t, 0, r.Count())
}
