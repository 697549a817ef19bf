package clock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loopIterations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcfclock_loop_iterations_total",
		Help: "The total number of main loop iterations",
	})
	dcfSyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcfclock_dcf77_syncs_total",
		Help: "The total number of confirmed DCF77 times applied to the clock",
	})
	alarmsRung = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dcfclock_alarms_total",
		Help: "The total number of alarms started, by slot",
	}, []string{"slot"})
	temperature = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dcfclock_temperature_celsius",
		Help: "Averaged thermistor temperature",
	})
	brightnessLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dcfclock_brightness_percent",
		Help: "Display brightness level last written to the DAC",
	})
)
