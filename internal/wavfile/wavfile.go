package wavfile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/liuscraft/pacap/internal/tone"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// Writer 将交错样本写入 WAV 文件
// f32 写成 IEEE float，8 位写成 WAV 规定的无符号 PCM。
type Writer struct {
	closer   io.Closer
	enc      *wav.Encoder
	encoding tone.Encoding
	channels int
	buf      *audio.IntBuffer
	frames   int
}

func Create(path string, encoding tone.Encoding, sampleRate, channels int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav %s: %w", path, err)
	}
	w, err := NewWriter(f, encoding, sampleRate, channels)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter wraps ws. Closing the Writer finalizes the header but does not
// close ws.
func NewWriter(ws io.WriteSeeker, encoding tone.Encoding, sampleRate, channels int) (*Writer, error) {
	if !encoding.Valid() {
		return nil, fmt.Errorf("unsupported wav encoding: %s", encoding)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid wav layout: rate=%d channels=%d", sampleRate, channels)
	}

	audioFormat := formatPCM
	if encoding == tone.Float32 {
		audioFormat = formatIEEEFloat
	}

	return &Writer{
		enc:      wav.NewEncoder(ws, sampleRate, encoding.BitDepth(), channels, audioFormat),
		encoding: encoding,
		channels: channels,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: encoding.BitDepth(),
		},
	}, nil
}

func (w *Writer) Frames() int {
	return w.frames
}

func (w *Writer) Encoding() tone.Encoding {
	return w.encoding
}

// Write appends interleaved samples. T must match the writer's encoding and
// len(samples) must be a whole number of frames.
func Write[T tone.Sample](w *Writer, samples []T) error {
	if tone.EncodingOf[T]() != w.encoding {
		return fmt.Errorf("wav writer expects %s samples: %w", w.encoding, tone.ErrEncodingMismatch)
	}
	if len(samples)%w.channels != 0 {
		return fmt.Errorf("wav write: %d samples is not a multiple of %d channels", len(samples), w.channels)
	}
	if len(samples) == 0 {
		return nil
	}

	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = toPCM(s)
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("wav write: %w", err)
	}
	w.frames += len(samples) / w.channels
	return nil
}

// toPCM maps a sample to the integer the WAV encoder stores for it.
func toPCM[T tone.Sample](s T) int {
	switch v := any(s).(type) {
	case float32:
		return int(int32(math.Float32bits(v)))
	case int32:
		return int(v)
	case int16:
		return int(v)
	case int8:
		return int(v) + 128
	case uint8:
		return int(v)
	}
	return 0
}

func (w *Writer) Close() error {
	err := w.enc.Close()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	if err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}
