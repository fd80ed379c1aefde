package service

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	runs atomic.Int32
}

func (s *countingSweeper) DailySweep(context.Context) (int, error) {
	s.runs.Add(1)
	return 0, nil
}

func TestSweepServiceRunsImmediatelyAndStops(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	sweeper := &countingSweeper{}
	svc := NewSweepService(sweeper, time.Hour, log)
	svc.Start()

	require.Eventually(t, func() bool {
		return sweeper.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)

	svc.Stop()
	assert.Equal(t, int32(1), sweeper.runs.Load())
}

func TestSweepServiceTicks(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	sweeper := &countingSweeper{}
	svc := NewSweepService(sweeper, 10*time.Millisecond, log)
	svc.Start()
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return sweeper.runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}
