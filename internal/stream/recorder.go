package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/logging"
	"github.com/liuscraft/pacap/internal/metrics"
	"github.com/liuscraft/pacap/internal/tone"
	"github.com/liuscraft/pacap/internal/wavfile"
)

// inputStream is a blocking capture stream.
type inputStream interface {
	audioStream
	Read() error
}

// capture 阻塞式录音缓冲区
// 非交错模式下 PortAudio 写入 planar，读取后再交错到 interleaved。
type capture[T tone.Sample] struct {
	channels    int
	frames      int
	interleaved []T
	planar      [][]T
	counters    *metrics.StreamCounters
	stats       Stats
}

func newCapture[T tone.Sample](channels, frames int, nonInterleaved bool, counters *metrics.StreamCounters) *capture[T] {
	c := &capture[T]{
		channels:    channels,
		frames:      frames,
		interleaved: make([]T, frames*channels),
		counters:    counters,
	}
	if nonInterleaved {
		c.planar = make([][]T, channels)
		for i := range c.planar {
			c.planar[i] = make([]T, frames)
		}
	}
	return c
}

// target is the buffer handed to PortAudio when the stream is opened.
func (c *capture[T]) target() any {
	if c.planar != nil {
		return &c.planar
	}
	return &c.interleaved
}

func (c *capture[T]) samples() []T {
	if c.planar != nil {
		for f := 0; f < c.frames; f++ {
			for ch := 0; ch < c.channels; ch++ {
				c.interleaved[f*c.channels+ch] = c.planar[ch][f]
			}
		}
	}
	return c.interleaved
}

// openInput opens a blocking capture stream reading into buf.
var openInput = func(p portaudio.StreamParameters, buf any) (inputStream, error) {
	s, err := portaudio.OpenStream(p, buf)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Record captures from dev for o.Duration (or until ctx is cancelled) and, if
// o.OutputPath is set, writes what it captured to a WAV file.
func Record(ctx context.Context, o Options, dev device.Info) (Stats, error) {
	if dev.PA == nil {
		return Stats{}, fmt.Errorf("device %q has no PortAudio handle", dev.Name)
	}

	switch o.Encoding {
	case tone.Float32:
		return record[float32](ctx, o, dev)
	case tone.Int32:
		return record[int32](ctx, o, dev)
	case tone.Int16:
		return record[int16](ctx, o, dev)
	case tone.Int8:
		return record[int8](ctx, o, dev)
	case tone.Uint8:
		return record[uint8](ctx, o, dev)
	}
	return Stats{}, fmt.Errorf("unsupported sample format: %s", o.Encoding)
}

// record opens the stream before the WAV file so a stream that cannot be
// opened leaves nothing on disk.
func record[T tone.Sample](ctx context.Context, o Options, dev device.Info) (st Stats, err error) {
	o.FramesPerBuffer = o.bufferFrames()
	c := newCapture[T](o.Channels, o.FramesPerBuffer, o.NonInterleaved, metrics.ForDirection(Input.String()))

	stream, err := openInput(Parameters(o, dev), c.target())
	if err != nil {
		return Stats{}, fmt.Errorf("open input stream: %w", err)
	}

	var write func([]T) error
	if o.OutputPath != "" {
		sink, cerr := wavfile.Create(o.OutputPath, o.Encoding, int(o.SampleRate), o.Channels)
		if cerr != nil {
			closeStream(stream)
			return Stats{}, cerr
		}
		defer func() {
			if cerr := sink.Close(); cerr != nil {
				err = errors.Join(err, cerr)
				return
			}
			logging.Infof("Record: wrote %d %s frames to %s", sink.Frames(), sink.Encoding(), o.OutputPath)
		}()
		write = func(samples []T) error { return wavfile.Write(sink, samples) }
	}

	seq := logging.StartStream()
	logging.Infof("Record: stream #%d on %q: %s, %.0f Hz, %d channels, %d frames per buffer",
		seq, dev.Name, o.Encoding, o.SampleRate, o.Channels, o.FramesPerBuffer)

	st, err = c.run(ctx, stream, o.Duration, write)
	if err != nil {
		return st, err
	}
	logging.Infof("Record: stream #%d finished: %d frames in %d reads", seq, st.Frames, st.Callbacks)
	if st.Overflows > 0 {
		logging.Warnf("Record: stream #%d had %d input overflows", seq, st.Overflows)
	}
	return st, nil
}

// run reads buffers until d elapses (never when d is 0) or ctx is done. A
// pending read is aborted on cancellation.
func (c *capture[T]) run(ctx context.Context, s inputStream, d time.Duration, write func([]T) error) (Stats, error) {
	if err := s.Start(); err != nil {
		closeStream(s)
		return c.stats, fmt.Errorf("start stream: %w", err)
	}
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}

	readErr := make(chan error, 1)
	for {
		if ctx.Err() != nil {
			logging.Infof("Record: interrupted (%v)", context.Cause(ctx))
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}

		go func() {
			readErr <- s.Read()
		}()

		select {
		case <-ctx.Done():
			abortStream(s, "context canceled")
			<-readErr
			closeStream(s)
			logging.Infof("Record: interrupted (%v)", context.Cause(ctx))
			return c.stats, nil
		case err := <-readErr:
			if err != nil {
				if !isOverflow(err) {
					abortStream(s, "read error")
					closeStream(s)
					return c.stats, fmt.Errorf("read stream: %w", err)
				}
				c.stats.Overflows++
				c.counters.InputOverflow.Inc()
			}
		}

		c.stats.Callbacks++
		c.stats.Frames += uint64(c.frames)
		c.counters.Callbacks.Inc()
		c.counters.Frames.Add(float64(c.frames))

		if write != nil {
			if err := write(c.samples()); err != nil {
				abortStream(s, "write error")
				closeStream(s)
				return c.stats, err
			}
		}
	}

	if err := s.Stop(); err != nil {
		closeStream(s)
		return c.stats, fmt.Errorf("stop stream: %w", err)
	}
	if err := s.Close(); err != nil {
		return c.stats, fmt.Errorf("close stream: %w", err)
	}
	return c.stats, nil
}

// isOverflow reports input overflow, which still delivers a full buffer.
func isOverflow(err error) bool {
	return errors.Is(err, portaudio.InputOverflowed)
}
