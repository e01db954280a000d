package stream

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/tone"
)

func testDevice() device.Info {
	return device.Info{
		Index:                    3,
		Name:                     "USB Audio Interface",
		MaxInputChannels:         4,
		MaxOutputChannels:        8,
		DefaultLowInputLatency:   3 * time.Millisecond,
		DefaultHighInputLatency:  30 * time.Millisecond,
		DefaultLowOutputLatency:  5 * time.Millisecond,
		DefaultHighOutputLatency: 50 * time.Millisecond,
		DefaultSampleRate:        48000,
	}
}

func TestWithDefaults_Play(t *testing.T) {
	o := Options{Direction: Output}.WithDefaults(testDevice())

	assert.Equal(t, tone.Channels, o.Channels)
	assert.Equal(t, 5*time.Millisecond, o.Latency)
	assert.Equal(t, 48000.0, o.SampleRate)
	assert.Equal(t, tone.Float32, o.Encoding)
	require.NoError(t, o.Validate())
}

func TestWithDefaults_RecordHighLatency(t *testing.T) {
	o := Options{Direction: Input, HighLatency: true, Encoding: tone.Int16}.WithDefaults(testDevice())

	assert.Equal(t, 4, o.Channels)
	assert.Equal(t, 30*time.Millisecond, o.Latency)
	assert.Equal(t, tone.Int16, o.Encoding)
}

func TestWithDefaults_KeepsExplicitValues(t *testing.T) {
	o := Options{
		Direction:  Output,
		Channels:   2,
		Latency:    100 * time.Millisecond,
		SampleRate: 44100,
		Encoding:   tone.Uint8,
	}.WithDefaults(testDevice())

	assert.Equal(t, 100*time.Millisecond, o.Latency)
	assert.Equal(t, 44100.0, o.SampleRate)
	assert.Equal(t, tone.Uint8, o.Encoding)
}

func TestValidate(t *testing.T) {
	valid := func() Options {
		return Options{Direction: Output, Channels: 2, Encoding: tone.Int16, SampleRate: 44100, Frequency: 1000}
	}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"unknown encoding", func(o *Options) { o.Encoding = 0 }},
		{"zero channels", func(o *Options) { o.Channels = 0 }},
		{"zero rate", func(o *Options) { o.SampleRate = 0 }},
		{"negative latency", func(o *Options) { o.Latency = -time.Millisecond }},
		{"negative duration", func(o *Options) { o.Duration = -time.Second }},
		{"negative frames", func(o *Options) { o.FramesPerBuffer = -1 }},
		{"negative frequency", func(o *Options) { o.Frequency = -1 }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(&o)
			assert.Error(t, o.Validate())
		})
	}

	multi := valid()
	multi.Channels = 8
	assert.NoError(t, multi.Validate(), "support checks accept any output channel count")

	rec := valid()
	rec.Direction = Input
	rec.Channels = 6
	assert.NoError(t, rec.Validate(), "capture accepts any channel count")
}

func TestCheckPlayable(t *testing.T) {
	o := Options{Direction: Output, Channels: 2, Encoding: tone.Int16, SampleRate: 44100}
	require.NoError(t, o.CheckPlayable())

	o.Channels = 8
	assert.ErrorIs(t, o.CheckPlayable(), ErrChannelCount)

	o.Channels = 2
	o.Direction = Input
	assert.Error(t, o.CheckPlayable())
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	o := Options{
		Direction:      Input,
		Channels:       1,
		Encoding:       tone.Int8,
		NonInterleaved: true,
		Latency:        20 * time.Millisecond,
		SampleRate:     16000,
	}
	require.NoError(t, Describe(&buf, o, testDevice()))

	out := buf.String()
	assert.Contains(t, out, "Open this stream as input with following parameters:")
	assert.Contains(t, out, "* device        : [3] USB Audio Interface")
	assert.Contains(t, out, "* channel       : 1")
	assert.Contains(t, out, "* format        : i8")
	assert.Contains(t, out, "* is_interleaved: no")
	assert.Contains(t, out, "* latency (sec) : 0.020000")
	assert.Contains(t, out, "* rate (Hz)     : 16000.000000")
}

func TestParameters_Direction(t *testing.T) {
	o := Options{Direction: Output, Channels: 2, Latency: 5 * time.Millisecond, SampleRate: 44100, FramesPerBuffer: 256}
	p := Parameters(o, testDevice())
	assert.Equal(t, 2, p.Output.Channels)
	assert.Equal(t, 5*time.Millisecond, p.Output.Latency)
	assert.Zero(t, p.Input.Channels)
	assert.Equal(t, 44100.0, p.SampleRate)
	assert.Equal(t, 256, p.FramesPerBuffer)

	o.Direction = Input
	p = Parameters(o, testDevice())
	assert.Equal(t, 2, p.Input.Channels)
	assert.Zero(t, p.Output.Channels)
}

func TestNewBuffer_TypeFollowsEncoding(t *testing.T) {
	buf, err := newBuffer(Options{Encoding: tone.Int32, Channels: 2, FramesPerBuffer: 64})
	require.NoError(t, err)
	interleaved, ok := buf.(*[]int32)
	require.True(t, ok, "got %T", buf)
	assert.Len(t, *interleaved, 128)

	buf, err = newBuffer(Options{Encoding: tone.Uint8, Channels: 3, NonInterleaved: true})
	require.NoError(t, err)
	planar, ok := buf.(*[][]uint8)
	require.True(t, ok, "got %T", buf)
	require.Len(t, *planar, 3)
	assert.Len(t, (*planar)[0], DefaultBlockingFrames)

	_, err = newBuffer(Options{Encoding: tone.Encoding(99), Channels: 2})
	assert.Error(t, err)
}

func TestCheckSupport_RequiresPortAudioDevice(t *testing.T) {
	err := CheckSupport(Options{Encoding: tone.Float32, Channels: 2, SampleRate: 44100}, testDevice())
	assert.Error(t, err)
}
