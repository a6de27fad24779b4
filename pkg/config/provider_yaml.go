package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the configuration from the YAML file, applies defaults
// and validates the result. The file is read once; later calls return the
// cached configuration.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// ParseYAML decodes, defaults and validates a YAML document.
func ParseYAML(data []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	config := yamlConfig.toConfigData()
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetStation returns the station section
func (y *YAMLProvider) GetStation() (*StationData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Station, nil
}

// GetStorageConfig returns the storage section
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// ConfigYAML mirrors ConfigData with YAML tags. Settings whose zero value is
// meaningful are pointers so that "unset" can fall back to a default.
type ConfigYAML struct {
	Station     StationYAML     `yaml:"station"`
	Input       InputYAML       `yaml:"input,omitempty"`
	Corrections CorrectionsYAML `yaml:"corrections,omitempty"`
	Analysis    AnalysisYAML    `yaml:"analysis,omitempty"`
	Storage     StorageYAML     `yaml:"storage,omitempty"`
	REST        RESTYAML        `yaml:"rest,omitempty"`
	Output      OutputYAML      `yaml:"output,omitempty"`
}

type StationYAML struct {
	Name        string   `yaml:"name"`
	Longitude   *float64 `yaml:"longitude"`
	Latitude    *float64 `yaml:"latitude"`
	Timezone    float64  `yaml:"timezone"`
	TidalFactor float64  `yaml:"tidal_factor"`
	Elevation   float64  `yaml:"elevation,omitempty"`
}

type InputYAML struct {
	GravityScale  float64 `yaml:"gravity_scale,omitempty"`
	PressureScale float64 `yaml:"pressure_scale,omitempty"`
}

type CorrectionsYAML struct {
	Detrend            *bool    `yaml:"detrend,omitempty"`
	PressureCorrection *bool    `yaml:"pressure_correction,omitempty"`
	PressureAdmittance *float64 `yaml:"pressure_admittance,omitempty"`
	PolynomialDegree   *int     `yaml:"polynomial_degree,omitempty"`
}

type AnalysisYAML struct {
	SamplesPerDay     int      `yaml:"samples_per_day,omitempty"`
	SampleRateHz      float64  `yaml:"sample_rate_hz,omitempty"`
	BandLowHz         *float64 `yaml:"band_low_hz,omitempty"`
	BandHighHz        float64  `yaml:"band_high_hz,omitempty"`
	CalibrationOffset *float64 `yaml:"calibration_offset,omitempty"`
	QuietDays         int      `yaml:"quiet_days,omitempty"`
	MaxPadExponent    int      `yaml:"max_pad_exponent,omitempty"`
	Workers           int      `yaml:"workers,omitempty"`
	DetrendConstant   *bool    `yaml:"detrend_constant,omitempty"`
}

type StorageYAML struct {
	SQLite      *SQLiteYAML      `yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection_string"`
}

type RESTYAML struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}

type OutputYAML struct {
	Directory string `yaml:"directory,omitempty"`
	Format    string `yaml:"format,omitempty"`
}

const (
	defaultAdmittance        = -0.3
	defaultPolynomialDegree  = 9
	defaultCalibrationOffset = 2.5
)

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func floatOr(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}

func intOr(i *int, def int) int {
	if i == nil {
		return def
	}
	return *i
}

func (y ConfigYAML) toConfigData() *ConfigData {
	config := &ConfigData{
		Station: StationData{
			Name:        y.Station.Name,
			Longitude:   floatOr(y.Station.Longitude, math.NaN()),
			Latitude:    floatOr(y.Station.Latitude, math.NaN()),
			Timezone:    y.Station.Timezone,
			TidalFactor: y.Station.TidalFactor,
			Elevation:   y.Station.Elevation,
		},
		Input: InputData{
			GravityScale:  y.Input.GravityScale,
			PressureScale: y.Input.PressureScale,
		},
		Corrections: CorrectionsData{
			Detrend:            boolOr(y.Corrections.Detrend, true),
			PressureCorrection: boolOr(y.Corrections.PressureCorrection, true),
			PressureAdmittance: floatOr(y.Corrections.PressureAdmittance, defaultAdmittance),
			PolynomialDegree:   intOr(y.Corrections.PolynomialDegree, defaultPolynomialDegree),
		},
		Analysis: AnalysisData{
			SamplesPerDay:     y.Analysis.SamplesPerDay,
			SampleRateHz:      y.Analysis.SampleRateHz,
			BandLowHz:         floatOr(y.Analysis.BandLowHz, DefaultBandLowHz),
			BandHighHz:        y.Analysis.BandHighHz,
			CalibrationOffset: floatOr(y.Analysis.CalibrationOffset, defaultCalibrationOffset),
			QuietDays:         y.Analysis.QuietDays,
			MaxPadExponent:    y.Analysis.MaxPadExponent,
			Workers:           y.Analysis.Workers,
			DetrendConstant:   boolOr(y.Analysis.DetrendConstant, true),
		},
		REST: RESTData{
			ListenAddr: y.REST.ListenAddr,
			Port:       y.REST.Port,
		},
		Output: OutputData{
			Directory: y.Output.Directory,
			Format:    y.Output.Format,
		},
	}

	if y.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: y.Storage.SQLite.Path}
	}
	if y.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: y.Storage.TimescaleDB.ConnectionString}
	}

	return config
}
