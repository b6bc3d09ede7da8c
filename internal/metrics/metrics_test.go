package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := NewEngine(reg)
	require.NoError(t, err)

	e.ObserveOperation("apply_veto", time.Millisecond, nil)
	e.ObserveOperation("apply_veto", time.Millisecond, bracket.Errorf(bracket.KindWrongTurn, "not your turn"))
	e.ObserveOperation("apply_veto", time.Millisecond, errors.New("disk full"))
	e.IncRetry("apply_veto")
	e.IncEvent("veto.completed")

	assert.Equal(t, 1.0, testutil.ToFloat64(e.operations.WithLabelValues("apply_veto", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.operations.WithLabelValues("apply_veto", "wrong_turn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.operations.WithLabelValues("apply_veto", "internal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.retries.WithLabelValues("apply_veto")))
	assert.Equal(t, 1, testutil.CollectAndCount(e.duration))

	_, err = NewEngine(reg)
	assert.Error(t, err, "collectors are registered once per registry")
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	e.ObserveOperation("x", 0, nil)
	e.IncRetry("x")
	e.IncEvent("x")
}
