package rtc

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	preciseTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dcfclock_rtc_precise_ticks_total",
		Help: "The total number of one-second ticks handled by the clock",
	})
	driftMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dcfclock_rtc_drift_ms",
		Help: "Drift of the millisecond source over the last second",
	})
)

// FastTick runs the millisecond handler in interrupt context.
func (e *Engine) FastTick() {
	state := e.mask.Disable()
	e.OnFastTick()
	e.mask.Restore(state)
}

// PreciseTick runs the one-second handler in interrupt context.
func (e *Engine) PreciseTick() {
	state := e.mask.Disable()
	e.OnPreciseTick()
	e.mask.Restore(state)

	preciseTicks.Inc()
	driftMs.Set(float64(e.ErrorMs()))
}

// Run dispatches ticks from the two sources until ctx is done.
//
// fast is usually a 1 ms time.Ticker; precise is either a 1 s time.Ticker
// or the edge stream of a 1 Hz square wave line.
func Run(ctx context.Context, e *Engine, fast, precise <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-fast:
			e.FastTick()
		case <-precise:
			e.PreciseTick()
		}
	}
}

// NewHostTicker starts host timers for both sources. The returned stop
// function releases them.
func NewHostTicker(fastPeriod, precisePeriod time.Duration) (fast, precise <-chan time.Time, stop func()) {
	ft := time.NewTicker(fastPeriod)
	pt := time.NewTicker(precisePeriod)
	return ft.C, pt.C, func() {
		ft.Stop()
		pt.Stop()
	}
}
