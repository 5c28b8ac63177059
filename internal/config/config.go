// Package config manages airbridge configuration: AWS targeting, the
// read-only policy default, logging, and the optional audit store.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix       = "AIRBRIDGE"
	DefaultLogLevel = "info"
	DefaultRegion   = "us-east-1"
)

// Config holds everything the serve command needs. The read-only flag is
// resolved once here and handed to the gate; nothing reads environment
// variables after startup.
type Config struct {
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	ReadOnly bool   `mapstructure:"read_only"`
	LogLevel string `mapstructure:"log_level"`
	AuditDB  string `mapstructure:"audit_db"`
}

// Load resolves configuration from an optional config file, AIRBRIDGE_*
// environment variables, and AWS_REGION/AWS_PROFILE. Read-only defaults to
// true: a misconfigured deployment must fail safe, never mutate.
func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("airbridge")
		vip.AddConfigPath(".")
	}
	vip.SetConfigType("yaml")

	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	vip.SetDefault("region", DefaultRegion)
	vip.SetDefault("read_only", true)
	vip.SetDefault("log_level", DefaultLogLevel)

	// AWS-conventional variables win over our defaults but lose to
	// explicit AIRBRIDGE_* settings.
	vip.BindEnv("region", "AIRBRIDGE_REGION", "AWS_REGION")
	vip.BindEnv("profile", "AIRBRIDGE_PROFILE", "AWS_PROFILE")
	vip.BindEnv("read_only", "AIRBRIDGE_READ_ONLY")
	vip.BindEnv("log_level", "AIRBRIDGE_LOG_LEVEL")
	vip.BindEnv("audit_db", "AIRBRIDGE_AUDIT_DB")

	// ConfigFileNotFoundError only occurs in search mode; a missing explicit
	// path surfaces as a plain open error and still fails.
	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
