package tone

import (
	"math"
)

// Channels is the number of channels a Generator produces per frame.
const Channels = 2

const twoPi = 2 * math.Pi

// OscillatorState holds the left and right phase accumulators, each in [0, 2π).
type OscillatorState struct {
	Left  float64
	Right float64
}

// Generator 双声道正弦波生成器
// 相位状态归生成器所有，跨调用保持；同一实例不允许并发调用 Fill。
type Generator struct {
	step     float64
	encoding Encoding
	rounding Rounding
	state    OscillatorState
}

type Option func(*Generator)

// WithRounding selects how integer encodings quantize the waveform.
func WithRounding(r Rounding) Option {
	return func(g *Generator) {
		g.rounding = r
	}
}

// New 创建生成器，step = 2π·frequency/sampleRate
func New(frequency, sampleRate float64, encoding Encoding, opts ...Option) (*Generator, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return nil, &InvalidParameterError{Name: "sample rate", Value: sampleRate, Reason: "must be a positive number"}
	}
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) || frequency < 0 {
		return nil, &InvalidParameterError{Name: "frequency", Value: frequency, Reason: "must be a non-negative number"}
	}
	if !encoding.Valid() {
		return nil, &InvalidParameterError{Name: "encoding", Value: encoding, Reason: "unsupported sample encoding"}
	}

	step := twoPi * frequency / sampleRate
	if math.IsInf(step, 0) {
		return nil, &InvalidParameterError{Name: "frequency", Value: frequency, Reason: "too high for the sample rate"}
	}

	g := &Generator{
		step:     step,
		encoding: encoding,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) Step() float64 {
	return g.step
}

func (g *Generator) Encoding() Encoding {
	return g.encoding
}

func (g *Generator) Rounding() Rounding {
	return g.rounding
}

func (g *Generator) State() OscillatorState {
	return g.state
}

// Fill writes frames interleaved stereo frames (left, right, left, ...) into
// out and advances the phase. It never allocates and never writes past
// out[frames*Channels-1]; every check happens before the first write.
func Fill[T Sample](g *Generator, frames int, out []T) error {
	if err := g.check(EncodingOf[T](), frames); err != nil {
		return err
	}
	if frames > len(out)/Channels {
		return &BufferTooSmallError{Frames: frames, Need: samplesFor(frames), Have: len(out)}
	}

	enc, r := g.encoding, g.rounding
	for i := 0; i < frames; i++ {
		out[i*Channels] = quantize[T](enc, r, math.Sin(g.state.Left))
		out[i*Channels+1] = quantize[T](enc, r, math.Sin(g.state.Right))
		g.advance()
	}
	return nil
}

// FillPlanar is Fill for non-interleaved buffers: one slice per channel.
func FillPlanar[T Sample](g *Generator, frames int, left, right []T) error {
	if err := g.check(EncodingOf[T](), frames); err != nil {
		return err
	}
	if have := min(len(left), len(right)); frames > have {
		return &BufferTooSmallError{Frames: frames, Need: frames, Have: have}
	}

	enc, r := g.encoding, g.rounding
	for i := 0; i < frames; i++ {
		left[i] = quantize[T](enc, r, math.Sin(g.state.Left))
		right[i] = quantize[T](enc, r, math.Sin(g.state.Right))
		g.advance()
	}
	return nil
}

// samplesFor is frames*Channels, saturated at math.MaxInt.
func samplesFor(frames int) int {
	if frames > math.MaxInt/Channels {
		return math.MaxInt
	}
	return frames * Channels
}

func (g *Generator) check(enc Encoding, frames int) error {
	if enc != g.encoding {
		return ErrEncodingMismatch
	}
	if frames < 0 {
		return &InvalidParameterError{Name: "frame count", Value: frames, Reason: "must not be negative"}
	}
	return nil
}

func (g *Generator) advance() {
	g.state.Left = wrapPhase(g.state.Left + g.step)
	g.state.Right = wrapPhase(g.state.Right + g.step)
}

// wrapPhase keeps p in [0, 2π). One subtraction covers step < 2π; larger
// steps fall through to a real modulo.
func wrapPhase(p float64) float64 {
	if p >= twoPi {
		p -= twoPi
		if p >= twoPi {
			p = math.Mod(p, twoPi)
		}
	}
	return p
}
