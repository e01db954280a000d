package stream

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/tone"
)

// Direction 流方向：播放或录音
type Direction int

const (
	Output Direction = iota
	Input
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

func (d Direction) IsInput() bool {
	return d == Input
}

// ErrChannelCount is returned when a tone is played with other than two channels.
var ErrChannelCount = errors.New("unsupported channel count for playback")

// DefaultBlockingFrames is the buffer size used for blocking (record) streams
// when FramesPerBuffer is not set.
const DefaultBlockingFrames = 1024

// Options 描述一次流会话的全部参数
type Options struct {
	Direction   Direction
	Channels    int
	Encoding    tone.Encoding
	Latency     time.Duration
	HighLatency bool
	SampleRate  float64
	// NonInterleaved 每个声道使用独立缓冲区
	NonInterleaved bool
	Dry            bool
	Frequency      float64
	// Duration 0 表示直到 ctx 被取消
	Duration time.Duration
	// FramesPerBuffer 0 lets PortAudio choose for callback streams.
	FramesPerBuffer int
	Rounding        tone.Rounding
	OutputPath      string
}

// WithDefaults fills unset fields from the device: channel count (2 for
// playback, the device maximum for capture), latency and sample rate.
func (o Options) WithDefaults(dev device.Info) Options {
	input := o.Direction.IsInput()
	if o.Channels == 0 {
		if input {
			o.Channels = dev.MaxInputChannels
		} else {
			o.Channels = tone.Channels
		}
	}
	if o.Latency == 0 {
		if o.HighLatency {
			o.Latency = dev.HighLatency(input)
		} else {
			o.Latency = dev.LowLatency(input)
		}
	}
	if o.SampleRate == 0 {
		o.SampleRate = dev.DefaultSampleRate
	}
	if o.Encoding == 0 {
		o.Encoding = tone.Float32
	}
	return o
}

func (o Options) Validate() error {
	if !o.Encoding.Valid() {
		return fmt.Errorf("unsupported sample format: %s", o.Encoding)
	}
	if o.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", o.Channels)
	}
	if o.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %v", o.SampleRate)
	}
	if o.Latency < 0 {
		return errors.New("latency must not be negative")
	}
	if o.Duration < 0 {
		return errors.New("duration must not be negative")
	}
	if o.FramesPerBuffer < 0 {
		return errors.New("frames per buffer must not be negative")
	}
	if !o.Direction.IsInput() && o.Frequency < 0 {
		return errors.New("frequency must not be negative")
	}
	return nil
}

// CheckPlayable reports whether the tone can be played with o. Support
// checks accept any channel count; only a running playback is stereo.
func (o Options) CheckPlayable() error {
	if o.Direction.IsInput() {
		return errors.New("playback needs an output stream")
	}
	if o.Channels != tone.Channels {
		return fmt.Errorf("%w: tone playback is %d channels, got %d", ErrChannelCount, tone.Channels, o.Channels)
	}
	return nil
}

func (o Options) bufferFrames() int {
	if o.FramesPerBuffer > 0 {
		return o.FramesPerBuffer
	}
	return DefaultBlockingFrames
}

// Describe prints the parameter block shown before the support check.
func Describe(w io.Writer, o Options, dev device.Info) error {
	interleaved := "yes"
	if o.NonInterleaved {
		interleaved = "no"
	}
	_, err := fmt.Fprintf(w,
		"Open this stream as %s with following parameters:\n"+
			"* device        : [%d] %s\n"+
			"* channel       : %d\n"+
			"* format        : %s\n"+
			"* is_interleaved: %s\n"+
			"* latency (sec) : %f\n"+
			"* rate (Hz)     : %f\n",
		o.Direction, dev.Index, dev.Name, o.Channels, o.Encoding, interleaved, o.Latency.Seconds(), o.SampleRate)
	return err
}
