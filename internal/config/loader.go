package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SHOPDEDUP"

// NewViper returns a viper instance with defaults registered and environment
// overrides enabled (SHOPDEDUP_MATCHING_CROSS_K and so on). Callers may bind
// flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("matching.duplicate_threshold_km", d.Matching.DuplicateThresholdKm)
	v.SetDefault("matching.cross_k", d.Matching.CrossK)
	v.SetDefault("matching.self_k", d.Matching.SelfK)
	v.SetDefault("matching.secured_range_km", d.Matching.SecuredRangeKm)
	v.SetDefault("matching.distance", d.Matching.Distance)
	v.SetDefault("matching.fold_accents", d.Matching.FoldAccents)
	v.SetDefault("matching.linear_scan_below", d.Matching.LinearScanBelow)
	v.SetDefault("columns.sheet", d.Columns.Sheet)
	v.SetDefault("columns.id", d.Columns.ID)
	v.SetDefault("columns.name", d.Columns.Name)
	v.SetDefault("columns.latitude", d.Columns.Latitude)
	v.SetDefault("columns.longitude", d.Columns.Longitude)
	v.SetDefault("columns.prospect_code", d.Columns.ProspectCode)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.username", d.Server.Username)
	v.SetDefault("server.password", d.Server.Password)
	v.SetDefault("server.session_secret", d.Server.SessionSecret)
	v.SetDefault("server.upload_dir", d.Server.UploadDir)
	v.SetDefault("server.output_dir", d.Server.OutputDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	return v
}

// Load reads configuration into a Config. configFile, when set, replaces the
// config.yaml search. A .env file in the working directory is loaded first
// without overriding variables already set in the environment.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
