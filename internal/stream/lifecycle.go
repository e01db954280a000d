package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/liuscraft/pacap/internal/logging"
	"github.com/liuscraft/pacap/internal/metrics"
)

// audioStream is the subset of *portaudio.Stream the session drives.
type audioStream interface {
	Start() error
	Stop() error
	Abort() error
	Close() error
}

// Stats 会话统计
type Stats struct {
	Callbacks  uint64
	Frames     uint64
	FillErrors uint64
	Underflows uint64
	Overflows  uint64
}

// runFor starts s, waits for d (forever when d is 0) or ctx, then stops and
// closes it. Cancellation is a normal way to end a session.
func runFor(ctx context.Context, s audioStream, d time.Duration) error {
	if err := s.Start(); err != nil {
		closeStream(s)
		return fmt.Errorf("start stream: %w", err)
	}
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		logging.Infof("Stream: interrupted (%v)", context.Cause(ctx))
	case <-timeout:
		logging.Debugf("Stream: duration %v elapsed", d)
	}

	if err := s.Stop(); err != nil {
		closeStream(s)
		return fmt.Errorf("stop stream: %w", err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}

func closeStream(s audioStream) {
	if err := s.Close(); err != nil {
		logging.Errorf("Stream: error closing stream: %v", err)
	}
}

func abortStream(s audioStream, reason string) {
	if err := s.Abort(); err != nil {
		logging.Errorf("Stream: error aborting stream (%s): %v", reason, err)
	}
}
