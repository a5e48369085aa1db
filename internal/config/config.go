package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL     string
	DBPath         string
	HTTPTimeout    time.Duration
	AzureMapsKey   string
	AzureMapsURL   string
	SearchDebounce time.Duration
	// DeviceLocation stands in for the device GPS. Nil when not configured.
	DeviceLatitude  *float64
	DeviceLongitude *float64
	LogLevel        string
	LogFile         string
}

// Load reads configuration from the environment and, when FLOODZONE_CONFIG
// names a file, from that file. Environment values win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("FLOODZONE_API_URL", "http://127.0.0.1:8081/api")
	v.SetDefault("FLOODZONE_DB_PATH", "floodzone.db")
	v.SetDefault("FLOODZONE_HTTP_TIMEOUT", "10s")
	v.SetDefault("AZURE_MAPS_KEY", "")
	v.SetDefault("AZURE_MAPS_URL", "https://atlas.microsoft.com")
	v.SetDefault("FLOODZONE_SEARCH_DEBOUNCE", "400ms")
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LOG_FILE", "")
	v.AutomaticEnv()

	if path := v.GetString("FLOODZONE_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		APIBaseURL:     v.GetString("FLOODZONE_API_URL"),
		DBPath:         v.GetString("FLOODZONE_DB_PATH"),
		HTTPTimeout:    v.GetDuration("FLOODZONE_HTTP_TIMEOUT"),
		AzureMapsKey:   v.GetString("AZURE_MAPS_KEY"),
		AzureMapsURL:   v.GetString("AZURE_MAPS_URL"),
		SearchDebounce: v.GetDuration("FLOODZONE_SEARCH_DEBOUNCE"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFile:        v.GetString("LOG_FILE"),
	}

	if v.IsSet("FLOODZONE_LATITUDE") && v.IsSet("FLOODZONE_LONGITUDE") {
		lat := v.GetFloat64("FLOODZONE_LATITUDE")
		lon := v.GetFloat64("FLOODZONE_LONGITUDE")
		cfg.DeviceLatitude = &lat
		cfg.DeviceLongitude = &lon
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("FLOODZONE_HTTP_TIMEOUT must be positive, got %q", v.GetString("FLOODZONE_HTTP_TIMEOUT"))
	}
	if cfg.SearchDebounce < 0 {
		return nil, fmt.Errorf("FLOODZONE_SEARCH_DEBOUNCE must not be negative")
	}

	return cfg, nil
}
