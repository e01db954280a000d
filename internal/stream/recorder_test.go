package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/metrics"
	"github.com/liuscraft/pacap/internal/tone"
)

// scriptedInput 按脚本返回 Read 结果，每次读取前调用 fill 填充缓冲区
type scriptedInput struct {
	fakeStream
	fill  func(n int)
	errs  []error
	reads int
}

func (s *scriptedInput) Read() error {
	s.reads++
	n := s.reads
	if s.fill != nil {
		s.fill(n)
	}
	if n <= len(s.errs) {
		return s.errs[n-1]
	}
	return nil
}

// blockingInput never completes a read until the stream is aborted.
type blockingInput struct {
	fakeStream
	aborted chan struct{}
	once    sync.Once
}

func (s *blockingInput) Read() error {
	<-s.aborted
	return errors.New("stream aborted")
}

func (s *blockingInput) Abort() error {
	s.once.Do(func() { close(s.aborted) })
	return s.fakeStream.Abort()
}

func TestCaptureRun_WritesEveryBuffer(t *testing.T) {
	c := newCapture[int16](2, 4, false, metrics.ForDirection("test-capture"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &scriptedInput{}
	s.fill = func(n int) {
		for i := range c.interleaved {
			c.interleaved[i] = int16(n*100 + i)
		}
	}

	var got [][]int16
	st, err := c.run(ctx, s, 0, func(samples []int16) error {
		got = append(got, append([]int16(nil), samples...))
		if len(got) == 3 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []int16{100, 101, 102, 103, 104, 105, 106, 107}, got[0])
	assert.Equal(t, []int16{300, 301, 302, 303, 304, 305, 306, 307}, got[2])
	assert.Equal(t, uint64(3), st.Callbacks)
	assert.Equal(t, uint64(12), st.Frames)
	assert.Equal(t, []string{"start", "stop", "close"}, s.Calls())
}

func TestCaptureRun_PlanarIsInterleaved(t *testing.T) {
	c := newCapture[float32](2, 3, true, metrics.ForDirection("test-capture-planar"))
	_, ok := c.target().(*[][]float32)
	require.True(t, ok, "planar capture should hand PortAudio a *[][]float32")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &scriptedInput{}
	s.fill = func(int) {
		copy(c.planar[0], []float32{0.1, 0.2, 0.3})
		copy(c.planar[1], []float32{-0.1, -0.2, -0.3})
	}

	var got []float32
	_, err := c.run(ctx, s, 0, func(samples []float32) error {
		got = append(got, samples...)
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}, got)
}

func TestCaptureRun_OverflowIsCounted(t *testing.T) {
	c := newCapture[uint8](1, 8, false, metrics.ForDirection("test-capture-overflow"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &scriptedInput{errs: []error{portaudio.InputOverflowed, nil}}

	writes := 0
	st, err := c.run(ctx, s, 0, func([]uint8) error {
		writes++
		if writes == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, writes, "an overflowed buffer is still delivered")
	assert.Equal(t, uint64(1), st.Overflows)
	assert.Equal(t, uint64(2), st.Callbacks)
}

func TestCaptureRun_ReadErrorAborts(t *testing.T) {
	c := newCapture[int32](2, 16, false, metrics.ForDirection("test-capture-error"))
	s := &scriptedInput{errs: []error{errors.New("device unplugged")}}

	st, err := c.run(context.Background(), s, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device unplugged")
	assert.Zero(t, st.Frames)
	assert.Equal(t, []string{"start", "abort", "close"}, s.Calls())
}

func TestCaptureRun_WriteErrorAborts(t *testing.T) {
	c := newCapture[int8](1, 16, false, metrics.ForDirection("test-capture-write"))
	s := &scriptedInput{}
	diskFull := errors.New("disk full")

	_, err := c.run(context.Background(), s, 0, func([]int8) error { return diskFull })
	require.ErrorIs(t, err, diskFull)
	assert.Equal(t, []string{"start", "abort", "close"}, s.Calls())
}

func TestCaptureRun_Duration(t *testing.T) {
	c := newCapture[int16](1, 4, false, metrics.ForDirection("test-capture-duration"))
	s := &scriptedInput{}
	s.fill = func(int) { time.Sleep(2 * time.Millisecond) }

	st, err := c.run(context.Background(), s, 20*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Positive(t, st.Callbacks)
	assert.Equal(t, []string{"start", "stop", "close"}, s.Calls())
}

func TestCaptureRun_CancelAbortsPendingRead(t *testing.T) {
	c := newCapture[int16](2, 4, false, metrics.ForDirection("test-capture-cancel"))
	s := &blockingInput{aborted: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := c.run(ctx, s, 0, nil)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run should return after context cancellation")
	}
	assert.Equal(t, []string{"start", "abort", "close"}, s.Calls())
}

func TestRecord_RequiresPortAudioDevice(t *testing.T) {
	_, err := Record(context.Background(), Options{Direction: Input, Encoding: tone.Int16, Channels: 1, SampleRate: 16000}, testDevice())
	assert.Error(t, err)
}

func stubOpenInput(t *testing.T, open func(portaudio.StreamParameters, any) (inputStream, error)) {
	t.Helper()
	prev := openInput
	openInput = open
	t.Cleanup(func() { openInput = prev })
}

func paDevice() device.Info {
	dev := testDevice()
	dev.PA = &portaudio.DeviceInfo{Name: dev.Name, MaxInputChannels: dev.MaxInputChannels}
	return dev
}

func TestRecord_OpenFailureLeavesNoFile(t *testing.T) {
	stubOpenInput(t, func(portaudio.StreamParameters, any) (inputStream, error) {
		return nil, errors.New("device unavailable")
	})
	path := filepath.Join(t.TempDir(), "capture.wav")

	_, err := Record(context.Background(), Options{
		Direction: Input, Encoding: tone.Int16, Channels: 2, SampleRate: 16000, OutputPath: path,
	}, paDevice())

	require.ErrorContains(t, err, "device unavailable")
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no WAV file may be created, stat: %v", statErr)
}

func TestRecord_WritesCapturedFrames(t *testing.T) {
	var params portaudio.StreamParameters
	s := &scriptedInput{}
	stubOpenInput(t, func(p portaudio.StreamParameters, buf any) (inputStream, error) {
		params = p
		samples := buf.(*[]int16)
		s.fill = func(n int) {
			for i := range *samples {
				(*samples)[i] = int16(n)
			}
			if n == 3 {
				time.Sleep(50 * time.Millisecond)
			}
		}
		return s, nil
	})
	path := filepath.Join(t.TempDir(), "capture.wav")

	st, err := Record(context.Background(), Options{
		Direction: Input, Encoding: tone.Int16, Channels: 2, SampleRate: 16000,
		FramesPerBuffer: 8, Duration: 20 * time.Millisecond, OutputPath: path,
	}, paDevice())
	require.NoError(t, err)
	assert.Equal(t, 2, params.Input.Channels)
	assert.Equal(t, 8, params.FramesPerBuffer)
	assert.Equal(t, uint64(3), st.Callbacks)
	assert.Equal(t, []string{"start", "stop", "close"}, s.Calls())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), d.NumChans)
	require.Len(t, buf.Data, 3*8*2)
	assert.Equal(t, 1, buf.Data[0])
	assert.Equal(t, 3, buf.Data[len(buf.Data)-1])
}
