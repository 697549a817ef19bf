package dcf77

import (
	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bitsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcfclock_dcf77_bits_received_total",
		Help: "The total number of DCF77 bits stored in a frame",
	})
	bitsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcfclock_dcf77_bits_failed_total",
		Help: "The total number of DCF77 pulses rejected by the decoder",
	})
	framesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcfclock_dcf77_frames_decoded_total",
		Help: "The total number of DCF77 frames decoded with valid parity",
	})
	frameErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcfclock_dcf77_frame_errors_total",
		Help: "The total number of DCF77 frames dropped, by reason",
	}, []string{"reason"})
)

// Stats counts reception events and records pulse widths.
type Stats struct {
	Bits         uint64
	Failed       uint64
	Frames       uint64
	ParityErrors uint64
	CountErrors  uint64
	Noise        uint64

	widths *hdrhistogram.Histogram
}

// StatsSnapshot is a copy of Stats with pulse width quantiles in ms.
type StatsSnapshot struct {
	Bits         uint64 `json:"bits"`
	Failed       uint64 `json:"failed"`
	Frames       uint64 `json:"frames"`
	ParityErrors uint64 `json:"parity_errors"`
	CountErrors  uint64 `json:"count_errors"`
	Noise        uint64 `json:"noise"`
	Pulses       int64  `json:"pulses"`
	WidthP50     int64  `json:"width_p50_ms"`
	WidthP90     int64  `json:"width_p90_ms"`
	WidthMax     int64  `json:"width_max_ms"`
}

// NewStats returns zeroed counters. The histogram covers 1 ms to 3 s.
func NewStats() *Stats {
	return &Stats{widths: hdrhistogram.New(1, 3000, 3)}
}

// observe records an interval spent at the active level.
func (s *Stats) observe(ms uint32, band Band) {
	switch band {
	case BandZero, BandOne:
		// Out of range values are only dropped from the histogram.
		_ = s.widths.RecordValue(int64(ms))
	case BandNoise:
		s.Noise++
	}
}

func (s *Stats) received() {
	s.Bits++
	bitsReceived.Inc()
}

func (s *Stats) failed() {
	s.Failed++
	bitsFailed.Inc()
}

func (s *Stats) frameDecoded() {
	s.Frames++
	framesDecoded.Inc()
}

func (s *Stats) frameError(err error) {
	kind := errorKind(err)
	if kind == "bit_count" {
		s.CountErrors++
	} else {
		s.ParityErrors++
	}
	frameErrors.WithLabelValues(kind).Inc()
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Bits:         s.Bits,
		Failed:       s.Failed,
		Frames:       s.Frames,
		ParityErrors: s.ParityErrors,
		CountErrors:  s.CountErrors,
		Noise:        s.Noise,
		Pulses:       s.widths.TotalCount(),
		WidthP50:     s.widths.ValueAtQuantile(50),
		WidthP90:     s.widths.ValueAtQuantile(90),
		WidthMax:     s.widths.Max(),
	}
}
