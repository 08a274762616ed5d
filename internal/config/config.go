// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/relabs-tech/sinefit/internal/imu"
)

// ErrConfig marks an invalid configuration. It is fatal: nothing starts.
var ErrConfig = errors.New("invalid config")

// EnvPrefix is prepended to every key when looking up environment overrides,
// e.g. SINEFIT_CADENCE_HZ.
const EnvPrefix = "SINEFIT"

// Sensor kinds accepted by SENSOR_KIND.
const (
	SensorMock    = "mock"
	SensorMPU9250 = "mpu9250"
	SensorADXL355 = "adxl355"
	SensorSerial  = "serial"
)

// Config holds all application configuration values. It is built once by
// Load and not modified afterwards.
type Config struct {
	// Estimator
	CadenceHz           int
	WindowCapacity      int
	TargetFrequencyHz   float64
	FitInterval         time.Duration
	FitInitialDelay     time.Duration
	FitAmplitudeEpsilon float64

	// Sensor
	SensorKind string
	SensorAxis imu.Axis

	// MPU9250 over SPI
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte

	// ADXL355 over I2C
	ADXLI2CBus  string
	ADXLI2CAddr uint16
	// 1=±2g, 2=±4g, 3=±8g
	ADXLRange byte

	// Serial accelerometer stream
	SerialPort     string
	SerialBaudRate int

	// Mock source
	MockAmplitude   float64
	MockOffset      float64
	MockPhase       float64
	MockFrequencyHz float64
	MockNoise       float64
	MockFailEvery   int

	// MQTT
	MQTTEnabled          bool
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string

	// Topics
	TopicFit    string
	TopicStatus string
	TopicWindow string

	// Presenters
	WebServerPort   int
	DisplayEnabled  bool
	DisplayI2CBus   string
	ConsoleEnabled  bool
	WindowDumpEvery int

	LogLevel string
}

// Dt is the sampling period.
func (c *Config) Dt() time.Duration {
	return time.Second / time.Duration(c.CadenceHz)
}

// defaults are applied before the file is read; every key the file may
// contain appears here.
var defaults = map[string]any{
	"CADENCE_HZ":            100,
	"WINDOW_CAPACITY":       100,
	"TARGET_FREQUENCY_HZ":   5.0,
	"FIT_INTERVAL_MS":       3000,
	"FIT_INITIAL_DELAY_MS":  1000,
	"FIT_AMPLITUDE_EPSILON": 1e-9,

	"SENSOR_KIND": SensorMock,
	"SENSOR_AXIS": "x",

	"IMU_SPI_DEVICE":  "/dev/spidev6.0",
	"IMU_CS_PIN":      "18",
	"IMU_ACCEL_RANGE": 0,

	"ADXL_I2C_BUS":  "",
	"ADXL_I2C_ADDR": "0x53",
	"ADXL_RANGE":    2,

	"SERIAL_PORT":      "/dev/serial0",
	"SERIAL_BAUD_RATE": 115200,

	"MOCK_AMPLITUDE":    2.0,
	"MOCK_OFFSET":       0.0,
	"MOCK_PHASE":        0.0,
	"MOCK_FREQUENCY_HZ": 5.0,
	"MOCK_NOISE":        0.0,
	"MOCK_FAIL_EVERY":   0,

	"MQTT_ENABLED":            false,
	"MQTT_BROKER":             "tcp://localhost:1883",
	"MQTT_CLIENT_ID_PRODUCER": "sinefit-estimator",
	"MQTT_CLIENT_ID_CONSOLE":  "sinefit-console",

	"TOPIC_FIT":    "sinefit/fit",
	"TOPIC_STATUS": "sinefit/status",
	"TOPIC_WINDOW": "sinefit/window",

	"WEB_SERVER_PORT":   8080,
	"DISPLAY_ENABLED":   false,
	"DISPLAY_I2C_BUS":   "",
	"CONSOLE_ENABLED":   true,
	"WINDOW_DUMP_EVERY": 50,

	"LOG_LEVEL": "info",
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg, err := fromViper(newViper())
	if err != nil {
		// defaults are validated by tests
		panic(err)
	}
	return cfg
}

// Load reads a KEY=VALUE configuration file ('#' starts a comment) and
// applies SINEFIT_* environment overrides. An empty path uses defaults and
// the environment only.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %v: %w", configPath, err, ErrConfig)
		}
		if err := checkKeys(v); err != nil {
			return nil, err
		}
	}
	return fromViper(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

func checkKeys(v *viper.Viper) error {
	var unknown []string
	for _, k := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(k)]; !ok {
			unknown = append(unknown, strings.ToUpper(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown config key(s): %s: %w", strings.Join(unknown, ", "), ErrConfig)
	}
	return nil
}

// fromViper converts and validates. viper lowercases keys internally and
// looks them up case-insensitively, so the upper-case names work as-is.
func fromViper(v *viper.Viper) (*Config, error) {
	axis, err := imu.ParseAxis(v.GetString("SENSOR_AXIS"))
	if err != nil {
		return nil, fmt.Errorf("SENSOR_AXIS: %v: %w", err, ErrConfig)
	}
	addr, err := parseUint16(v.GetString("ADXL_I2C_ADDR"))
	if err != nil {
		return nil, fmt.Errorf("invalid ADXL_I2C_ADDR %q: %v: %w", v.GetString("ADXL_I2C_ADDR"), err, ErrConfig)
	}

	c := &Config{
		CadenceHz:           v.GetInt("CADENCE_HZ"),
		WindowCapacity:      v.GetInt("WINDOW_CAPACITY"),
		TargetFrequencyHz:   v.GetFloat64("TARGET_FREQUENCY_HZ"),
		FitInterval:         time.Duration(v.GetInt("FIT_INTERVAL_MS")) * time.Millisecond,
		FitInitialDelay:     time.Duration(v.GetInt("FIT_INITIAL_DELAY_MS")) * time.Millisecond,
		FitAmplitudeEpsilon: v.GetFloat64("FIT_AMPLITUDE_EPSILON"),

		SensorKind: strings.ToLower(v.GetString("SENSOR_KIND")),
		SensorAxis: axis,

		IMUSPIDevice:  v.GetString("IMU_SPI_DEVICE"),
		IMUCSPin:      v.GetString("IMU_CS_PIN"),
		IMUAccelRange: byte(v.GetInt("IMU_ACCEL_RANGE")),

		ADXLI2CBus:  v.GetString("ADXL_I2C_BUS"),
		ADXLI2CAddr: addr,
		ADXLRange:   byte(v.GetInt("ADXL_RANGE")),

		SerialPort:     v.GetString("SERIAL_PORT"),
		SerialBaudRate: v.GetInt("SERIAL_BAUD_RATE"),

		MockAmplitude:   v.GetFloat64("MOCK_AMPLITUDE"),
		MockOffset:      v.GetFloat64("MOCK_OFFSET"),
		MockPhase:       v.GetFloat64("MOCK_PHASE"),
		MockFrequencyHz: v.GetFloat64("MOCK_FREQUENCY_HZ"),
		MockNoise:       v.GetFloat64("MOCK_NOISE"),
		MockFailEvery:   v.GetInt("MOCK_FAIL_EVERY"),

		MQTTEnabled:          v.GetBool("MQTT_ENABLED"),
		MQTTBroker:           v.GetString("MQTT_BROKER"),
		MQTTClientIDProducer: v.GetString("MQTT_CLIENT_ID_PRODUCER"),
		MQTTClientIDConsole:  v.GetString("MQTT_CLIENT_ID_CONSOLE"),

		TopicFit:    v.GetString("TOPIC_FIT"),
		TopicStatus: v.GetString("TOPIC_STATUS"),
		TopicWindow: v.GetString("TOPIC_WINDOW"),

		WebServerPort:   v.GetInt("WEB_SERVER_PORT"),
		DisplayEnabled:  v.GetBool("DISPLAY_ENABLED"),
		DisplayI2CBus:   v.GetString("DISPLAY_I2C_BUS"),
		ConsoleEnabled:  v.GetBool("CONSOLE_ENABLED"),
		WindowDumpEvery: v.GetInt("WINDOW_DUMP_EVERY"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := c.validate(v); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrConfig)
	}
	return c, nil
}

// validate checks ranges and cross-field constraints.
func (c *Config) validate(v *viper.Viper) error {
	if c.CadenceHz < 1 || c.CadenceHz > 10000 {
		return fmt.Errorf("CADENCE_HZ must be 1-10000, got %d", c.CadenceHz)
	}
	if c.WindowCapacity < 3 {
		return fmt.Errorf("WINDOW_CAPACITY must be at least 3, got %d", c.WindowCapacity)
	}
	if c.TargetFrequencyHz <= 0 {
		return fmt.Errorf("TARGET_FREQUENCY_HZ must be positive, got %g", c.TargetFrequencyHz)
	}
	if nyquist := float64(c.CadenceHz) / 2; c.TargetFrequencyHz >= nyquist {
		return fmt.Errorf("TARGET_FREQUENCY_HZ %g must be below half the cadence (%g Hz)", c.TargetFrequencyHz, nyquist)
	}
	if c.FitInterval <= 0 {
		return fmt.Errorf("FIT_INTERVAL_MS must be positive, got %d", v.GetInt("FIT_INTERVAL_MS"))
	}
	if c.FitInitialDelay < 0 {
		return fmt.Errorf("FIT_INITIAL_DELAY_MS must not be negative, got %d", v.GetInt("FIT_INITIAL_DELAY_MS"))
	}
	if c.FitAmplitudeEpsilon < 0 {
		return fmt.Errorf("FIT_AMPLITUDE_EPSILON must not be negative, got %g", c.FitAmplitudeEpsilon)
	}

	switch c.SensorKind {
	case SensorMock:
		if c.MockFrequencyHz <= 0 {
			return fmt.Errorf("MOCK_FREQUENCY_HZ must be positive, got %g", c.MockFrequencyHz)
		}
		if c.MockNoise < 0 {
			return fmt.Errorf("MOCK_NOISE must not be negative, got %g", c.MockNoise)
		}
		if c.MockFailEvery < 0 {
			return fmt.Errorf("MOCK_FAIL_EVERY must not be negative, got %d", c.MockFailEvery)
		}
	case SensorMPU9250:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for SENSOR_KIND=%s", c.SensorKind)
		}
		if r := v.GetInt("IMU_ACCEL_RANGE"); r < 0 || r > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", r)
		}
	case SensorADXL355:
		if r := v.GetInt("ADXL_RANGE"); r < 1 || r > 3 {
			return fmt.Errorf("ADXL_RANGE must be 1-3 (1=±2g, 2=±4g, 3=±8g), got %d", r)
		}
		if c.ADXLI2CAddr == 0 || c.ADXLI2CAddr > 0x7F {
			return fmt.Errorf("ADXL_I2C_ADDR must be a 7-bit address, got 0x%X", c.ADXLI2CAddr)
		}
	case SensorSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SENSOR_KIND=%s", c.SensorKind)
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	default:
		return fmt.Errorf("unknown SENSOR_KIND %q (want mock, mpu9250, adxl355 or serial)", c.SensorKind)
	}

	if c.MQTTEnabled && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when MQTT_ENABLED is set")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	if c.WindowDumpEvery < 0 {
		return fmt.Errorf("WINDOW_DUMP_EVERY must not be negative, got %d", c.WindowDumpEvery)
	}
	return nil
}

func parseUint16(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
