package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/chrissnell/gravnoise/internal/types"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStation() (*StationData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Station     StationData     `json:"station"`
	Input       InputData       `json:"input"`
	Corrections CorrectionsData `json:"corrections"`
	Analysis    AnalysisData    `json:"analysis"`
	Storage     StorageData     `json:"storage,omitempty"`
	REST        RESTData        `json:"rest,omitempty"`
	Output      OutputData      `json:"output,omitempty"`
}

// StationData describes the gravimeter site. Longitude and Latitude are NaN
// when the configuration leaves them out.
type StationData struct {
	Name        string  `json:"name"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	Timezone    float64 `json:"timezone"`
	TidalFactor float64 `json:"tidal_factor"`
	Elevation   float64 `json:"elevation"`
}

// InputData holds the unit scaling applied while reading TSF files
type InputData struct {
	GravityScale  float64 `json:"gravity_scale"`
	PressureScale float64 `json:"pressure_scale"`
}

// CorrectionsData selects the correction stages
type CorrectionsData struct {
	Detrend            bool    `json:"detrend"`
	PressureCorrection bool    `json:"pressure_correction"`
	PressureAdmittance float64 `json:"pressure_admittance"`
	PolynomialDegree   int     `json:"polynomial_degree"`
}

// AnalysisData holds the noise analysis parameters
type AnalysisData struct {
	SamplesPerDay     int     `json:"samples_per_day"`
	SampleRateHz      float64 `json:"sample_rate_hz"`
	BandLowHz         float64 `json:"band_low_hz"`
	BandHighHz        float64 `json:"band_high_hz"`
	CalibrationOffset float64 `json:"calibration_offset"`
	QuietDays         int     `json:"quiet_days"`
	MaxPadExponent    int     `json:"max_pad_exponent"`
	Workers           int     `json:"workers"`
	DetrendConstant   bool    `json:"detrend_constant"`
}

// StorageData holds the configuration for the run storage backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// RESTData configures the read-only results API
type RESTData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// OutputData configures the report files
type OutputData struct {
	Directory string `json:"directory,omitempty"`
	Format    string `json:"format,omitempty"`
}

// Defaults for settings whose zero value is meaningless.
const (
	DefaultGravityScale   = 1000.0
	DefaultPressureScale  = 1.0
	DefaultSamplesPerDay  = 1440
	DefaultSampleRateHz   = 1.0 / 60
	DefaultBandLowHz      = 1.0 / 600
	DefaultBandHighHz     = 1.0 / 200
	DefaultQuietDays      = 3
	DefaultMaxPadExponent = 20
	DefaultListenAddr     = "0.0.0.0"
	DefaultPort           = 8080
	DefaultOutputDir      = "."
	DefaultOutputFormat   = "json"
)

// ApplyDefaults fills unset settings whose zero value is meaningless. A
// zero band_low_hz is a valid lower edge and is kept.
func (c *ConfigData) ApplyDefaults() {
	if c.Input.GravityScale == 0 {
		c.Input.GravityScale = DefaultGravityScale
	}
	if c.Input.PressureScale == 0 {
		c.Input.PressureScale = DefaultPressureScale
	}

	a := &c.Analysis
	if a.SamplesPerDay == 0 {
		a.SamplesPerDay = DefaultSamplesPerDay
	}
	if a.SampleRateHz == 0 {
		a.SampleRateHz = DefaultSampleRateHz
	}
	if a.BandHighHz == 0 {
		a.BandHighHz = DefaultBandHighHz
	}
	if a.QuietDays == 0 {
		a.QuietDays = DefaultQuietDays
	}
	if a.MaxPadExponent == 0 {
		a.MaxPadExponent = DefaultMaxPadExponent
	}

	if c.REST.ListenAddr == "" {
		c.REST.ListenAddr = DefaultListenAddr
	}
	if c.REST.Port == 0 {
		c.REST.Port = DefaultPort
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if c.Output.Format == "" {
		c.Output.Format = DefaultOutputFormat
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *ConfigData) Validate() error {
	s := c.Station
	if math.IsNaN(s.Longitude) || math.IsNaN(s.Latitude) {
		return fmt.Errorf("%w: station longitude/latitude required", ErrInvalidConfig)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("%w: station longitude %v out of range", ErrInvalidConfig, s.Longitude)
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("%w: station latitude %v out of range", ErrInvalidConfig, s.Latitude)
	}
	if s.Timezone < -12 || s.Timezone > 14 {
		return fmt.Errorf("%w: station timezone %v out of range", ErrInvalidConfig, s.Timezone)
	}
	if !(s.TidalFactor > 0) {
		return fmt.Errorf("%w: station tidal_factor must be positive", ErrInvalidConfig)
	}

	if !(c.Input.GravityScale != 0) || !(c.Input.PressureScale != 0) {
		return fmt.Errorf("%w: input scales must be non-zero", ErrInvalidConfig)
	}
	if c.Corrections.PolynomialDegree < 0 {
		return fmt.Errorf("%w: polynomial_degree must be >= 0", ErrInvalidConfig)
	}

	a := c.Analysis
	if a.SamplesPerDay <= 0 {
		return fmt.Errorf("%w: samples_per_day must be positive", ErrInvalidConfig)
	}
	if !(a.SampleRateHz > 0) {
		return fmt.Errorf("%w: sample_rate_hz must be positive", ErrInvalidConfig)
	}
	if !(a.BandLowHz >= 0 && a.BandLowHz < a.BandHighHz) {
		return fmt.Errorf("%w: analysis band [%v, %v] is empty or inverted", ErrInvalidConfig, a.BandLowHz, a.BandHighHz)
	}
	if a.QuietDays <= 0 {
		return fmt.Errorf("%w: quiet_days must be positive", ErrInvalidConfig)
	}
	if a.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidConfig)
	}

	switch c.Output.Format {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("%w: output format %q", ErrInvalidConfig, c.Output.Format)
	}

	return nil
}

// StationConfig converts the station section into the domain type.
func (s StationData) StationConfig() types.Station {
	return types.Station{
		Name:        s.Name,
		Longitude:   s.Longitude,
		Latitude:    s.Latitude,
		Timezone:    s.Timezone,
		TidalFactor: s.TidalFactor,
		Elevation:   s.Elevation,
	}
}
