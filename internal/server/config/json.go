package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/placeshare/internal/flagx"
	"github.com/dmitrijs2005/placeshare/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. It is seeded from the current Config, so keys missing from the file
// keep their previous values.
type JsonConfig struct {
	HTTPAddr                  string         `json:"http_addr"`
	StoreBackend              string         `json:"store_backend"`
	BuntPath                  string         `json:"bunt_path"`
	DatabaseDSN               string         `json:"database_dsn"`
	SecretKey                 string         `json:"secret_key"`
	TokenValidityDuration     timex.Duration `json:"token_validity_duration"`
	S3RootUser                string         `json:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
	AvatarURLValidityDuration timex.Duration `json:"avatar_url_validity_duration"`
	AppScheme                 string         `json:"app_scheme"`
	ShortLinkHosts            []string       `json:"short_link_hosts"`
	LinkTimeout               timex.Duration `json:"link_timeout"`
	LinkRateLimit             float64        `json:"link_rate_limit"`
	LinkBurst                 int            `json:"link_burst"`
	DetailsCacheSize          int            `json:"details_cache_size"`
	PlacesAPIKey              string         `json:"places_api_key"`
	PlacesBaseURL             string         `json:"places_base_url"`
	GeocodeBaseURL            string         `json:"geocode_base_url"`
	MetricsEnabled            bool           `json:"metrics_enabled"`
	LogLevel                  string         `json:"log_level"`
}

func fromConfig(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:                  c.HTTPAddr,
		StoreBackend:              c.StoreBackend,
		BuntPath:                  c.BuntPath,
		DatabaseDSN:               c.DatabaseDSN,
		SecretKey:                 c.SecretKey,
		TokenValidityDuration:     timex.Duration{Duration: c.TokenValidityDuration},
		S3RootUser:                c.S3RootUser,
		S3RootPassword:            c.S3RootPassword,
		S3Bucket:                  c.S3Bucket,
		S3Region:                  c.S3Region,
		S3BaseEndpoint:            c.S3BaseEndpoint,
		AvatarURLValidityDuration: timex.Duration{Duration: c.AvatarURLValidityDuration},
		AppScheme:                 c.AppScheme,
		ShortLinkHosts:            c.ShortLinkHosts,
		LinkTimeout:               timex.Duration{Duration: c.LinkTimeout},
		LinkRateLimit:             c.LinkRateLimit,
		LinkBurst:                 c.LinkBurst,
		DetailsCacheSize:          c.DetailsCacheSize,
		PlacesAPIKey:              c.PlacesAPIKey,
		PlacesBaseURL:             c.PlacesBaseURL,
		GeocodeBaseURL:            c.GeocodeBaseURL,
		MetricsEnabled:            c.MetricsEnabled,
		LogLevel:                  c.LogLevel,
	}
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flag; without it
// nothing is loaded. If the file cannot be read or contains invalid JSON,
// the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	if err := LoadFile(jsonConfigFile, config); err != nil {
		panic(err)
	}
}

// LoadFile overlays the JSON file at path onto config. Keys missing from the
// file keep their current values.
func LoadFile(path string, config *Config) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := fromConfig(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	config.HTTPAddr = c.HTTPAddr
	config.StoreBackend = c.StoreBackend
	config.BuntPath = c.BuntPath
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.TokenValidityDuration = c.TokenValidityDuration.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.AvatarURLValidityDuration = c.AvatarURLValidityDuration.Duration
	config.AppScheme = c.AppScheme
	config.ShortLinkHosts = c.ShortLinkHosts
	config.LinkTimeout = c.LinkTimeout.Duration
	config.LinkRateLimit = c.LinkRateLimit
	config.LinkBurst = c.LinkBurst
	config.DetailsCacheSize = c.DetailsCacheSize
	config.PlacesAPIKey = c.PlacesAPIKey
	config.PlacesBaseURL = c.PlacesBaseURL
	config.GeocodeBaseURL = c.GeocodeBaseURL
	config.MetricsEnabled = c.MetricsEnabled
	config.LogLevel = c.LogLevel
}
