package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentRegistry_SharesDuplicates(t *testing.T) {
	t.Parallel()

	a := NewComponentRegistry("courier_test", "dup").NewCounter(prometheus.CounterOpts{
		Name: "events_total",
		Help: "test counter",
	})
	b := NewComponentRegistry("courier_test", "dup").NewCounter(prometheus.CounterOpts{
		Name: "events_total",
		Help: "test counter",
	})

	assert.Same(t, a, b)
}

func TestComponentRegistry_VecScoped(t *testing.T) {
	t.Parallel()

	vec := NewComponentRegistry("courier_test", "vec").NewCounterVec(prometheus.CounterOpts{
		Name: "calls_total",
		Help: "test vec",
	}, []string{"state"})
	vec.WithLabelValues("executed").Add(3)

	families, err := GetRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "courier_test_vec_calls_total" {
			found = true
		}
	}
	assert.True(t, found)
}
