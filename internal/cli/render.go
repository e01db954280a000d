package cli

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/liuscraft/pacap/internal/logging"
	"github.com/liuscraft/pacap/internal/tone"
	"github.com/liuscraft/pacap/internal/wavfile"
)

// renderChunk 每次生成的帧数
const renderChunk = 4096

func (a *app) renderCommand() *cobra.Command {
	var (
		format   string
		rate     float64
		freq     float64
		duration float64
		rounding string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the sine tone into a WAV file without opening a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed := cmd.Flags().Changed
			if !changed("format") {
				format = a.cfg.Tone.Format
			}
			if !changed("freq") {
				freq = a.cfg.Tone.Frequency
			}
			if !changed("duration") {
				duration = a.cfg.Tone.Duration
			}
			if !changed("rounding") {
				rounding = a.cfg.Tone.Rounding
			}

			enc, err := tone.ParseEncoding(format)
			if err != nil {
				return err
			}
			r, err := tone.ParseRounding(rounding)
			if err != nil {
				return err
			}
			if duration <= 0 {
				return errors.New("render needs a positive --duration")
			}

			gen, err := tone.New(freq, rate, enc, tone.WithRounding(r))
			if err != nil {
				return err
			}
			frames := int(math.Round(duration * rate))
			if err := renderFile(output, gen, rate, frames); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d frames of %.1f Hz, %s, %.0f Hz\n",
				output, frames, freq, enc, rate)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "", "sample format: f32, i32, i16, i8, u8")
	flags.Float64VarP(&rate, "rate", "r", 44100, "sample rate in Hz")
	flags.Float64Var(&freq, "freq", 0, "sine wave frequency in Hz")
	flags.Float64Var(&duration, "duration", 0, "duration in seconds")
	flags.StringVar(&rounding, "rounding", "", "integer quantisation: nearest or truncate")
	flags.StringVarP(&output, "output", "o", "", "WAV file to write")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// renderFile writes frames of gen's tone to a stereo WAV file at path.
func renderFile(path string, gen *tone.Generator, rate float64, frames int) (err error) {
	w, err := wavfile.Create(path, gen.Encoding(), int(rate), tone.Channels)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	logging.Infof("Render: %d frames to %s (%s, step=%.6f rad)", frames, path, gen.Encoding(), gen.Step())
	switch gen.Encoding() {
	case tone.Float32:
		return renderTo[float32](w, gen, frames)
	case tone.Int32:
		return renderTo[int32](w, gen, frames)
	case tone.Int16:
		return renderTo[int16](w, gen, frames)
	case tone.Int8:
		return renderTo[int8](w, gen, frames)
	case tone.Uint8:
		return renderTo[uint8](w, gen, frames)
	}
	return fmt.Errorf("unsupported sample format: %s", gen.Encoding())
}

func renderTo[T tone.Sample](w *wavfile.Writer, gen *tone.Generator, frames int) error {
	buf := make([]T, renderChunk*tone.Channels)
	for left := frames; left > 0; {
		n := min(left, renderChunk)
		if err := tone.Fill(gen, n, buf); err != nil {
			return err
		}
		if err := wavfile.Write(w, buf[:n*tone.Channels]); err != nil {
			return err
		}
		left -= n
	}
	return nil
}
