// Package config holds the runtime configuration of the clock.
//
// Values come from three layers, later ones winning: built-in defaults,
// an optional TOML file (--config) and the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/dcf-clock/internal/gpio"
)

var version = "<not set>"

// Config is the full runtime configuration.
type Config struct {
	ConfigFile string `arg:"--config" toml:"-" help:"TOML configuration file"`

	Chip        string `arg:"--chip" toml:"chip" help:"GPIO character device"`
	PinMode     int    `arg:"--pin-mode" toml:"pin_mode" help:"BCM pin of the Mode button"`
	PinSelect   int    `arg:"--pin-select" toml:"pin_select" help:"BCM pin of the Select button"`
	PinPlus     int    `arg:"--pin-plus" toml:"pin_plus" help:"BCM pin of the Plus button"`
	PinMinus    int    `arg:"--pin-minus" toml:"pin_minus" help:"BCM pin of the Minus button"`
	PinDCFData  int    `arg:"--pin-dcf-data" toml:"pin_dcf_data" help:"BCM pin of the DCF77 receiver output"`
	PinDCFPower int    `arg:"--pin-dcf-power" toml:"pin_dcf_power" help:"BCM pin switching the DCF77 receiver"`
	PinPPS      int    `arg:"--pin-pps" toml:"pin_pps" help:"BCM pin of the 1 Hz backup RTC output (-1 uses a host timer)"`
	PinBuzzer   int    `arg:"--pin-buzzer" toml:"pin_buzzer" help:"BCM pin of the piezo"`
	PinLEDs     [4]int `arg:"-" toml:"pin_leds"`

	I2CBus     string `arg:"--i2c" toml:"i2c_bus" help:"I2C bus of the LCD and backup RTC"`
	LCDAddr    uint8  `arg:"--lcd-addr" toml:"lcd_addr" help:"I2C address of the LCD backpack (0 for default)"`
	SegmentSPI string `arg:"--spi-segment" toml:"spi_segment" help:"SPI device of the 7-segment shift registers"`
	DACSPI     string `arg:"--spi-dac" toml:"spi_dac" help:"SPI device of the brightness DAC"`
	ADCSPI     string `arg:"--spi-adc" toml:"spi_adc" help:"SPI device of the sensor ADC"`
	NoBackup   bool   `arg:"--no-backup-rtc" toml:"no_backup_rtc" help:"run without the backup RTC chip"`

	SettingsFile string   `arg:"--settings" toml:"settings_file" help:"alarm and brightness settings file"`
	Broker       string   `arg:"--broker" toml:"broker" help:"MQTT broker address (empty to disable)"`
	HTTPAddr     string   `arg:"--http" toml:"http_addr" help:"HTTP status address (empty to disable)"`
	Heartbeat    Duration `arg:"--heartbeat" toml:"heartbeat" help:"MQTT heartbeat interval (0 to disable)"`
	Poll         Duration `arg:"--poll" toml:"poll" help:"main loop pacing"`
	SetSystem    bool     `arg:"--set-system-clock" toml:"set_system_clock" help:"set the host clock from DCF77"`
	DCFOnStart   bool     `arg:"--dcf-on-start" toml:"dcf_on_start" help:"switch the DCF77 receiver on at startup"`
	SerialDebug  string   `arg:"--serial-debug" toml:"serial_debug" help:"serial port receiving a copy of the log"`
	SerialBaud   int      `arg:"--serial-baud" toml:"serial_baud" help:"serial debug port speed"`
	Verbose      bool     `arg:"-v,--verbose" toml:"verbose" help:"log DCF77 pulses and other debug output"`
}

// Version implements the go-arg version flag.
func (Config) Version() string {
	return version
}

// Defaults returns the configuration of the clock board.
func Defaults() Config {
	return Config{
		Chip:         "gpiochip0",
		PinMode:      gpio.PinMode,
		PinSelect:    gpio.PinSelect,
		PinPlus:      gpio.PinPlus,
		PinMinus:     gpio.PinMinus,
		PinDCFData:   gpio.PinDCFData,
		PinDCFPower:  gpio.PinDCFPower,
		PinPPS:       gpio.PinPPS,
		PinBuzzer:    gpio.PinBuzzer,
		PinLEDs:      [4]int{gpio.PinSecondsLED, gpio.PinDCFOkLED, gpio.PinDCFFailLED, gpio.PinDCFPowerLED},
		I2CBus:       "1",
		SegmentSPI:   "SPI0.0",
		DACSPI:       "SPI0.1",
		ADCSPI:       "SPI1.0",
		SettingsFile: "/var/lib/dcf-clock/settings.toml",
		HTTPAddr:     ":80",
		Heartbeat:    Duration{15 * time.Minute},
		Poll:         Duration{time.Millisecond},
		SerialBaud:   500000,
	}
}

// Duration is a time.Duration written as text, such as "15m", on the
// command line and in the file.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadFile decodes a TOML file on top of cfg. Unknown keys are an error.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// Validate checks values go-arg and TOML cannot constrain.
func (c *Config) Validate() error {
	var errs []error
	if c.Poll.Duration <= 0 {
		errs = append(errs, fmt.Errorf("poll must be positive, got %v", c.Poll))
	}
	if c.Heartbeat.Duration < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat))
	}
	pins := map[string]int{
		"mode": c.PinMode, "select": c.PinSelect, "plus": c.PinPlus, "minus": c.PinMinus,
		"dcf-data": c.PinDCFData, "dcf-power": c.PinDCFPower, "buzzer": c.PinBuzzer,
	}
	seen := make(map[int]string)
	for _, name := range []string{"mode", "select", "plus", "minus", "dcf-data", "dcf-power", "buzzer"} {
		pin := pins[name]
		if pin < 0 {
			errs = append(errs, fmt.Errorf("pin %s: invalid number %d", name, pin))
			continue
		}
		if other, ok := seen[pin]; ok {
			errs = append(errs, fmt.Errorf("pin %s: %d already used by %s", name, pin, other))
		}
		seen[pin] = name
	}
	return errors.Join(errs...)
}

// Parse builds the configuration from argv (without the program name).
// go-arg's ErrHelp and ErrVersion are passed through.
func Parse(argv []string) (Config, *arg.Parser, error) {
	cfg := Defaults()
	p, err := arg.NewParser(arg.Config{Program: "dcf-clock"}, &cfg)
	if err != nil {
		return cfg, nil, err
	}
	if err := p.Parse(argv); err != nil {
		return cfg, p, err
	}
	if cfg.ConfigFile != "" {
		file := Defaults()
		file.ConfigFile = cfg.ConfigFile
		if err := LoadFile(cfg.ConfigFile, &file); err != nil {
			return cfg, p, err
		}
		// The command line wins over the file.
		p, err = arg.NewParser(arg.Config{Program: "dcf-clock"}, &file)
		if err != nil {
			return cfg, nil, err
		}
		if err := p.Parse(argv); err != nil {
			return file, p, err
		}
		cfg = file
	}
	if err := cfg.Validate(); err != nil {
		return cfg, p, err
	}
	return cfg, p, nil
}
