package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"hotel-booking/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingDispatch struct {
	usecase.DispatchService
	sweeps atomic.Int32
}

func (c *countingDispatch) Redeliver(context.Context) (int, error) {
	c.sweeps.Add(1)
	return 0, nil
}

func TestScheduler_RunsRedelivery(t *testing.T) {
	d := &countingDispatch{}
	s := New(d, zap.NewNop())

	require.NoError(t, s.Start("@every 1s"))
	assert.Eventually(t, func() bool { return d.sweeps.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_EmptySpecIsIdle(t *testing.T) {
	s := New(&countingDispatch{}, zap.NewNop())

	assert.NoError(t, s.Start(""))
	s.Stop()
}

func TestScheduler_BadSpec(t *testing.T) {
	s := New(&countingDispatch{}, zap.NewNop())

	assert.Error(t, s.Start("every so often"))
}
