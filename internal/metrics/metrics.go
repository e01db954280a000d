package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pacap_active_streams",
		Help: "Number of PortAudio streams currently running",
	})
)

// Counters
var (
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pacap_callbacks_total",
		Help: "Total stream callbacks or blocking buffer transfers by direction",
	}, []string{"direction"})
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pacap_frames_total",
		Help: "Total frames generated or captured by direction",
	}, []string{"direction"})
	StreamFlagsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pacap_stream_flags_total",
		Help: "Stream status flags reported by the audio engine",
	}, []string{"flag"})
	FillErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pacap_fill_errors_total",
		Help: "Callbacks whose buffer could not be filled by the tone generator",
	})
)

// Stream flag label values.
const (
	FlagInputUnderflow  = "input_underflow"
	FlagInputOverflow   = "input_overflow"
	FlagOutputUnderflow = "output_underflow"
	FlagOutputOverflow  = "output_overflow"
	FlagPrimingOutput   = "priming_output"
)

// StreamCounters are the counters of one stream, resolved up front so the
// audio callback only touches atomics.
type StreamCounters struct {
	Callbacks       prometheus.Counter
	Frames          prometheus.Counter
	FillErrors      prometheus.Counter
	InputUnderflow  prometheus.Counter
	InputOverflow   prometheus.Counter
	OutputUnderflow prometheus.Counter
	OutputOverflow  prometheus.Counter
	PrimingOutput   prometheus.Counter
}

func ForDirection(direction string) *StreamCounters {
	return &StreamCounters{
		Callbacks:       CallbacksTotal.WithLabelValues(direction),
		Frames:          FramesTotal.WithLabelValues(direction),
		FillErrors:      FillErrorsTotal,
		InputUnderflow:  StreamFlagsTotal.WithLabelValues(FlagInputUnderflow),
		InputOverflow:   StreamFlagsTotal.WithLabelValues(FlagInputOverflow),
		OutputUnderflow: StreamFlagsTotal.WithLabelValues(FlagOutputUnderflow),
		OutputOverflow:  StreamFlagsTotal.WithLabelValues(FlagOutputOverflow),
		PrimingOutput:   StreamFlagsTotal.WithLabelValues(FlagPrimingOutput),
	}
}
