package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper is the archival operation the background job drives.
type Sweeper interface {
	DailySweep(ctx context.Context) (int, error)
}

// SweepService periodically moves passed days into the archive. The sweep
// itself is idempotent and clinic-local-date aware, so running it more often
// than once per midnight is harmless.
type SweepService struct {
	sweeper  Sweeper
	interval time.Duration
	log      *logrus.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewSweepService(sweeper Sweeper, interval time.Duration, log *logrus.Logger) *SweepService {
	return &SweepService{
		sweeper:  sweeper,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop in the background, once immediately and then on
// every interval, until Stop is called.
func (s *SweepService) Start() {
	go func() {
		defer close(s.done)

		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()
	s.log.Infof("Archival sweep started, interval %s", s.interval)
}

func (s *SweepService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	swept, err := s.sweeper.DailySweep(ctx)
	if err != nil {
		s.log.Errorf("Archival sweep failed: %+v", err)
		return
	}
	if swept > 0 {
		s.log.Infof("Archival sweep moved %d day(s) in %s", swept, time.Since(start))
	}
}

// Stop halts the loop and waits for an in-flight run to finish.
func (s *SweepService) Stop() {
	close(s.stop)
	<-s.done
	s.log.Info("Archival sweep stopped")
}
