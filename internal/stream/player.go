package stream

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/logging"
	"github.com/liuscraft/pacap/internal/metrics"
	"github.com/liuscraft/pacap/internal/tone"
)

// player 将 PortAudio 回调桥接到正弦波生成器
// 回调运行在音频线程：不加锁、不分配、不打日志。
type player struct {
	gen      *tone.Generator
	counters *metrics.StreamCounters

	callbacks  atomic.Uint64
	frames     atomic.Uint64
	fillErrors atomic.Uint64
	underflows atomic.Uint64
	overflows  atomic.Uint64
}

func newPlayer(gen *tone.Generator, counters *metrics.StreamCounters) *player {
	return &player{gen: gen, counters: counters}
}

// Play opens an output stream on dev that plays the configured tone until
// o.Duration elapses or ctx is cancelled.
func Play(ctx context.Context, o Options, dev device.Info) (Stats, error) {
	if err := o.CheckPlayable(); err != nil {
		return Stats{}, err
	}
	if dev.PA == nil {
		return Stats{}, fmt.Errorf("device %q has no PortAudio handle", dev.Name)
	}
	gen, err := tone.New(o.Frequency, o.SampleRate, o.Encoding, tone.WithRounding(o.Rounding))
	if err != nil {
		return Stats{}, err
	}

	p := newPlayer(gen, metrics.ForDirection(Output.String()))
	callback, err := p.callback(o.NonInterleaved)
	if err != nil {
		return Stats{}, err
	}

	stream, err := portaudio.OpenStream(Parameters(o, dev), callback)
	if err != nil {
		return Stats{}, fmt.Errorf("open output stream: %w", err)
	}

	seq := logging.StartStream()
	logging.Infof("Play: stream #%d on %q: %s, %.0f Hz, %.1f Hz tone (step=%.6f rad, rounding=%s)",
		seq, dev.Name, o.Encoding, o.SampleRate, o.Frequency, gen.Step(), gen.Rounding())

	if err := runFor(ctx, stream, o.Duration); err != nil {
		return p.stats(), err
	}

	st := p.stats()
	logging.Infof("Play: stream #%d finished: %d frames in %d callbacks", seq, st.Frames, st.Callbacks)
	if st.Underflows > 0 || st.Overflows > 0 || st.FillErrors > 0 {
		logging.Warnf("Play: stream #%d had %d underflows, %d overflows, %d fill errors",
			seq, st.Underflows, st.Overflows, st.FillErrors)
	}
	return st, nil
}

// callback returns the PortAudio callback for the generator's encoding; the
// buffer element type is what tells PortAudio the sample format.
func (p *player) callback(nonInterleaved bool) (any, error) {
	switch p.gen.Encoding() {
	case tone.Float32:
		return callbackOf[float32](p, nonInterleaved), nil
	case tone.Int32:
		return callbackOf[int32](p, nonInterleaved), nil
	case tone.Int16:
		return callbackOf[int16](p, nonInterleaved), nil
	case tone.Int8:
		return callbackOf[int8](p, nonInterleaved), nil
	case tone.Uint8:
		return callbackOf[uint8](p, nonInterleaved), nil
	}
	return nil, fmt.Errorf("unsupported sample format: %s", p.gen.Encoding())
}

func callbackOf[T tone.Sample](p *player, nonInterleaved bool) any {
	if nonInterleaved {
		return planarCallback[T](p)
	}
	return interleavedCallback[T](p)
}

func interleavedCallback[T tone.Sample](p *player) func([]T, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags) {
	return func(out []T, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		p.observe(flags)
		frames := len(out) / tone.Channels
		if err := tone.Fill(p.gen, frames, out); err != nil {
			p.fillFailed()
			clear(out)
			return
		}
		p.filled(frames)
	}
}

func planarCallback[T tone.Sample](p *player) func([][]T, portaudio.StreamCallbackTimeInfo, portaudio.StreamCallbackFlags) {
	return func(out [][]T, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		p.observe(flags)
		if len(out) != tone.Channels {
			p.fillFailed()
			for _, ch := range out {
				clear(ch)
			}
			return
		}
		frames := len(out[0])
		if err := tone.FillPlanar(p.gen, frames, out[0], out[1]); err != nil {
			p.fillFailed()
			clear(out[0])
			clear(out[1])
			return
		}
		p.filled(frames)
	}
}

func (p *player) observe(flags portaudio.StreamCallbackFlags) {
	p.callbacks.Add(1)
	p.counters.Callbacks.Inc()
	if flags&portaudio.OutputUnderflow != 0 {
		p.underflows.Add(1)
		p.counters.OutputUnderflow.Inc()
	}
	if flags&portaudio.OutputOverflow != 0 {
		p.overflows.Add(1)
		p.counters.OutputOverflow.Inc()
	}
	if flags&portaudio.PrimingOutput != 0 {
		p.counters.PrimingOutput.Inc()
	}
}

func (p *player) filled(frames int) {
	p.frames.Add(uint64(frames))
	p.counters.Frames.Add(float64(frames))
}

func (p *player) fillFailed() {
	p.fillErrors.Add(1)
	p.counters.FillErrors.Inc()
}

func (p *player) stats() Stats {
	return Stats{
		Callbacks:  p.callbacks.Load(),
		Frames:     p.frames.Load(),
		FillErrors: p.fillErrors.Load(),
		Underflows: p.underflows.Load(),
		Overflows:  p.overflows.Load(),
	}
}
