package config

import (
	"errors"
	"fmt"

	"shop-dedup/internal/calculator"
	"shop-dedup/internal/excel"
	"shop-dedup/internal/geo"
	"shop-dedup/internal/spatial"
)

type Config struct {
	Matching MatchingConfig `mapstructure:"matching"`
	Columns  ColumnsConfig  `mapstructure:"columns"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type MatchingConfig struct {
	DuplicateThresholdKm float64 `mapstructure:"duplicate_threshold_km"`
	CrossK               int     `mapstructure:"cross_k"`
	SelfK                int     `mapstructure:"self_k"`
	SecuredRangeKm       float64 `mapstructure:"secured_range_km"`
	Distance             string  `mapstructure:"distance"`
	FoldAccents          bool    `mapstructure:"fold_accents"`
	LinearScanBelow      int     `mapstructure:"linear_scan_below"`
}

type ColumnsConfig struct {
	Sheet        string `mapstructure:"sheet"`
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Latitude     string `mapstructure:"latitude"`
	Longitude    string `mapstructure:"longitude"`
	ProspectCode string `mapstructure:"prospect_code"`
}

type ServerConfig struct {
	Port          string `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SessionSecret string `mapstructure:"session_secret"`
	UploadDir     string `mapstructure:"upload_dir"`
	OutputDir     string `mapstructure:"output_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Default() *Config {
	cols := excel.DefaultColumns()
	return &Config{
		Matching: MatchingConfig{
			DuplicateThresholdKm: calculator.DefaultDuplicateThresholdKm,
			CrossK:               calculator.DefaultCrossK,
			SelfK:                calculator.DefaultSelfK,
			Distance:             "geodesic",
			LinearScanBelow:      spatial.DefaultLinearScanBelow,
		},
		Columns: ColumnsConfig{
			ID:           cols.ID,
			Name:         cols.Name,
			Latitude:     cols.Latitude,
			Longitude:    cols.Longitude,
			ProspectCode: cols.ProspectCode,
		},
		Server: ServerConfig{
			Port:      "9595",
			UploadDir: "uploads",
			OutputDir: "output",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	var errs []error
	m := c.Matching
	if m.DuplicateThresholdKm < 0 {
		errs = append(errs, fmt.Errorf("matching.duplicate_threshold_km must be non-negative, got %v", m.DuplicateThresholdKm))
	}
	if m.CrossK < 1 {
		errs = append(errs, fmt.Errorf("matching.cross_k must be at least 1, got %d", m.CrossK))
	}
	if m.SelfK < 2 {
		errs = append(errs, fmt.Errorf("matching.self_k must be at least 2, got %d", m.SelfK))
	}
	if m.SecuredRangeKm < 0 {
		errs = append(errs, fmt.Errorf("matching.secured_range_km must be non-negative, got %v", m.SecuredRangeKm))
	}
	if _, err := geo.DistanceByName(m.Distance); err != nil {
		errs = append(errs, fmt.Errorf("matching.distance: %w", err))
	}
	if c.Columns.ID == "" || c.Columns.Latitude == "" || c.Columns.Longitude == "" || c.Columns.ProspectCode == "" {
		errs = append(errs, errors.New("columns: id, latitude, longitude and prospect_code are required"))
	}
	return errors.Join(errs...)
}

// MatchOptions builds engine options from the matching section.
func (c *Config) MatchOptions() (calculator.Options, error) {
	dist, err := geo.DistanceByName(c.Matching.Distance)
	if err != nil {
		return calculator.Options{}, err
	}
	opts := calculator.DefaultOptions()
	opts.DuplicateThresholdKm = c.Matching.DuplicateThresholdKm
	opts.CrossK = c.Matching.CrossK
	opts.SelfK = c.Matching.SelfK
	opts.SecuredRangeKm = c.Matching.SecuredRangeKm
	opts.Distance = dist
	opts.Names = calculator.NameMatcher{FoldAccents: c.Matching.FoldAccents}
	opts.LinearScanBelow = c.Matching.LinearScanBelow
	return opts, nil
}

func (c *Config) ExcelColumns() excel.Columns {
	return excel.Columns{
		ID:           c.Columns.ID,
		Name:         c.Columns.Name,
		Latitude:     c.Columns.Latitude,
		Longitude:    c.Columns.Longitude,
		ProspectCode: c.Columns.ProspectCode,
	}
}

// ValidateServer checks the settings only the job server needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.Username == "" || c.Server.Password == "" {
		errs = append(errs, errors.New("server.username and server.password are required"))
	}
	if len(c.Server.SessionSecret) < 16 {
		errs = append(errs, errors.New("server.session_secret must be at least 16 characters"))
	}
	return errors.Join(errs...)
}
