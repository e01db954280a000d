package stream

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/tone"
)

// ErrFormatNotSupported wraps the engine's answer when a parameter set is rejected.
var ErrFormatNotSupported = errors.New("format not supported")

// Parameters maps Options onto PortAudio stream parameters for one direction.
// The sample format is carried by the buffer or callback type, not here.
func Parameters(o Options, dev device.Info) portaudio.StreamParameters {
	dp := portaudio.StreamDeviceParameters{
		Device:   dev.PA,
		Channels: o.Channels,
		Latency:  o.Latency,
	}
	p := portaudio.StreamParameters{
		SampleRate:      o.SampleRate,
		FramesPerBuffer: o.FramesPerBuffer,
	}
	if o.Direction.IsInput() {
		p.Input = dp
	} else {
		p.Output = dp
	}
	return p
}

// CheckSupport asks PortAudio whether the stream described by o can be
// opened on dev.
func CheckSupport(o Options, dev device.Info) error {
	if dev.PA == nil {
		return fmt.Errorf("device %q has no PortAudio handle", dev.Name)
	}
	buf, err := newBuffer(o)
	if err != nil {
		return err
	}
	if err := portaudio.IsFormatSupported(Parameters(o, dev), buf); err != nil {
		return fmt.Errorf("%w: %w", ErrFormatNotSupported, err)
	}
	return nil
}

// newBuffer returns a pointer to a buffer whose element type selects the
// sample format: *[]T when interleaved, *[][]T otherwise.
func newBuffer(o Options) (any, error) {
	switch o.Encoding {
	case tone.Float32:
		return bufferOf[float32](o), nil
	case tone.Int32:
		return bufferOf[int32](o), nil
	case tone.Int16:
		return bufferOf[int16](o), nil
	case tone.Int8:
		return bufferOf[int8](o), nil
	case tone.Uint8:
		return bufferOf[uint8](o), nil
	}
	return nil, fmt.Errorf("unsupported sample format: %s", o.Encoding)
}

func bufferOf[T tone.Sample](o Options) any {
	frames := o.bufferFrames()
	if o.NonInterleaved {
		planar := make([][]T, o.Channels)
		for i := range planar {
			planar[i] = make([]T, frames)
		}
		return &planar
	}
	interleaved := make([]T, frames*o.Channels)
	return &interleaved
}
