// Package sensor converts raw ADC readings of the thermistor and the light
// sensor.
package sensor

import "math"

// ADC reference and resolution.
const (
	VRef       = 2.506
	Resolution = 1024
)

// Channels of the ADC.
const (
	ChannelLight       = 3
	ChannelTemperature = 4
)

// Samples is the length of the temperature averaging window.
const Samples = 10

// RawToMillivolts converts a raw ADC value.
func RawToMillivolts(raw int) float64 {
	return VRef * float64(raw) / Resolution * 1000
}

// Celsius linearizes the thermistor voltage given in millivolts.
func Celsius(mv float64) float64 {
	return 30 + (10.888-math.Sqrt(10.888*10.888+4*0.00347*(1777.3-mv)))/(-2*0.00347) - 1.5
}

// Thermistor averages temperature readings over Samples values.
type Thermistor struct {
	samples [Samples]float64
	n       int
	value   float64
	valid   bool
}

// Add records one raw reading. Each full window publishes a new average.
func (t *Thermistor) Add(raw int) {
	t.samples[t.n] = Celsius(RawToMillivolts(raw))
	t.n++
	if t.n < Samples {
		return
	}
	sum := 0.0
	for _, s := range t.samples {
		sum += s
	}
	t.value = sum / Samples
	t.valid = true
	t.n = 0
}

// Value returns the last published average, 0 before the first window
// completes.
func (t *Thermistor) Value() float64 {
	return t.value
}

// Valid reports whether a window has completed.
func (t *Thermistor) Valid() bool {
	return t.valid
}

// AutoBrightness maps the light sensor reading to a display level in
// percent. Brighter surroundings give a lower level.
func AutoBrightness(raw int) uint8 {
	light := raw / 8
	if light < 0 {
		light = 0
	}
	if light > 100 {
		light = 100
	}
	return uint8(100 - light)
}
