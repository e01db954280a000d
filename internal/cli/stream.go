package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liuscraft/pacap/internal/config"
	"github.com/liuscraft/pacap/internal/device"
	"github.com/liuscraft/pacap/internal/logging"
	"github.com/liuscraft/pacap/internal/stream"
	"github.com/liuscraft/pacap/internal/tone"
)

// streamFlags 流相关命令行参数
// 未显式指定的参数取配置文件中的值。
type streamFlags struct {
	channels       int
	format         string
	latency        float64
	highLatency    bool
	nonInterleaved bool
	rate           float64
	dry            bool
	freq           float64
	duration       float64
	frames         int
	rounding       string
	output         string
	input          bool
}

// bindFormat registers the flags that describe the stream itself.
func (f *streamFlags) bindFormat(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&f.channels, "channel", "c", 0, "channel count (default: 2 for playback, device maximum for capture)")
	flags.StringVarP(&f.format, "format", "f", "", "sample format: f32, i32, i16, i8, u8")
	flags.Float64VarP(&f.latency, "latency", "l", 0, "suggested latency in seconds (default: device default)")
	flags.BoolVar(&f.highLatency, "high-latency", false, "use the device's default high latency instead of the low one")
	flags.BoolVarP(&f.nonInterleaved, "noninterleaved", "n", false, "store each channel's samples in its own buffer")
	flags.Float64VarP(&f.rate, "rate", "r", 0, "sample rate in Hz (default: device default)")
	flags.IntVar(&f.frames, "frames", 0, "frames per buffer (0: let PortAudio choose)")
}

// bindSession registers the flags that control a running stream.
func (f *streamFlags) bindSession(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dry, "dry", false, "only check whether the stream is supported")
	cmd.Flags().Float64Var(&f.duration, "duration", 0, "duration in seconds, 0 runs until interrupted")
}

// options builds stream options from flags, falling back to cfg for
// anything not given on the command line.
func (f *streamFlags) options(cmd *cobra.Command, dir stream.Direction, cfg *config.AppConfig) (stream.Options, error) {
	changed := cmd.Flags().Changed
	if !changed("format") {
		f.format = cfg.Tone.Format
	}
	if !changed("freq") {
		f.freq = cfg.Tone.Frequency
	}
	if !changed("duration") {
		f.duration = cfg.Tone.Duration
	}
	if !changed("rounding") {
		f.rounding = cfg.Tone.Rounding
	}
	if !changed("high-latency") {
		f.highLatency = cfg.Stream.HighLatency
	}
	if !changed("frames") {
		f.frames = cfg.Stream.FramesPerBuffer
	}

	enc, err := tone.ParseEncoding(f.format)
	if err != nil {
		return stream.Options{}, err
	}
	rounding, err := tone.ParseRounding(f.rounding)
	if err != nil {
		return stream.Options{}, err
	}
	if f.latency < 0 {
		return stream.Options{}, fmt.Errorf("latency must not be negative, got %v", f.latency)
	}
	if f.rate < 0 {
		return stream.Options{}, fmt.Errorf("sample rate must not be negative, got %v", f.rate)
	}

	return stream.Options{
		Direction:       dir,
		Channels:        f.channels,
		Encoding:        enc,
		Latency:         seconds(f.latency),
		HighLatency:     f.highLatency,
		SampleRate:      f.rate,
		NonInterleaved:  f.nonInterleaved,
		Dry:             f.dry,
		Frequency:       f.freq,
		Duration:        seconds(f.duration),
		FramesPerBuffer: f.frames,
		Rounding:        rounding,
		OutputPath:      f.output,
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (a *app) playCommand() *cobra.Command {
	f := &streamFlags{}
	cmd := &cobra.Command{
		Use:   "play [DEVICE]",
		Short: "Play a stereo sine tone on an output device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStream(cmd, args, f, stream.Output, false)
		},
	}
	f.bindFormat(cmd)
	f.bindSession(cmd)
	cmd.Flags().Float64Var(&f.freq, "freq", 0, "sine wave frequency in Hz")
	cmd.Flags().StringVar(&f.rounding, "rounding", "", "integer quantisation: nearest or truncate")
	return cmd
}

func (a *app) recordCommand() *cobra.Command {
	f := &streamFlags{}
	cmd := &cobra.Command{
		Use:   "record [DEVICE]",
		Short: "Record from an input device, optionally into a WAV file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStream(cmd, args, f, stream.Input, false)
		},
	}
	f.bindFormat(cmd)
	f.bindSession(cmd)
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write captured audio to this WAV file")
	return cmd
}

// runStream resolves the device, prints the stream parameters, checks that
// the stream is supported and, unless checkOnly or --dry, runs it.
func (a *app) runStream(cmd *cobra.Command, args []string, f *streamFlags, dir stream.Direction, checkOnly bool) error {
	o, err := f.options(cmd, dir, a.cfg)
	if err != nil {
		return err
	}
	selector := ""
	if len(args) > 0 {
		selector = args[0]
	}

	return a.withAudio(func() error {
		devices, err := a.backend.Devices()
		if err != nil {
			return err
		}
		dev, err := device.Resolve(devices, selector, dir.IsInput())
		if err != nil {
			return err
		}

		opts := o.WithDefaults(dev)
		if err := opts.Validate(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := stream.Describe(out, opts, dev); err != nil {
			return err
		}
		if err := a.backend.CheckSupport(opts, dev); err != nil {
			fmt.Fprintf(out, "\nNot supported: %v\n", err)
			return err
		}
		fmt.Fprintln(out, "\nSupported")
		if checkOnly || opts.Dry {
			return nil
		}
		if !dir.IsInput() {
			if err := opts.CheckPlayable(); err != nil {
				return err
			}
		}

		return a.withMetrics(cmd.Context(), func(ctx context.Context) error {
			return a.session(ctx, cmd, opts, dev)
		})
	})
}

func (a *app) session(ctx context.Context, cmd *cobra.Command, o stream.Options, dev device.Info) error {
	out := cmd.OutOrStdout()
	if o.Duration == 0 {
		fmt.Fprintln(out, "Running. Press Ctrl-C to stop.")
	}

	var (
		st  stream.Stats
		err error
	)
	if o.Direction.IsInput() {
		st, err = a.backend.Record(ctx, o, dev)
	} else {
		st, err = a.backend.Play(ctx, o, dev)
	}
	if err != nil {
		logging.Errorf("CLI: %s on %q failed: %v", o.Direction, dev.Name, err)
		return err
	}

	fmt.Fprintf(out, "Done: %d frames, %d buffers, %d underflows, %d overflows\n",
		st.Frames, st.Callbacks, st.Underflows, st.Overflows)
	if o.OutputPath != "" {
		fmt.Fprintf(out, "Wrote %s\n", o.OutputPath)
	}
	return nil
}
