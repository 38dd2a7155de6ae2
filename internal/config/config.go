// Package config loads tool configuration from an optional YAML file and
// MEDCONV_-prefixed environment variables, with documented defaults for
// every setting.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Config carries every tunable of the decode pipeline.
type Config struct {
	BtpsFactor  float64 `mapstructure:"btps_factor"`  // Fallback BTPS correction factor
	O2PerLiter  float64 `mapstructure:"o2_per_liter"` // O2 extraction, mL per liter ventilated
	PnpCodepage int     `mapstructure:"pnp_codepage"` // Codepage of PNP header text
	ZakCodepage int     `mapstructure:"zak_codepage"` // Codepage of ZAK report text
	LogLevel    string  `mapstructure:"log_level"`
	LogFormat   string  `mapstructure:"log_format"` // "text" or "json"
}

// Load reads configuration from the given file, or from medconv.yaml in
// the working directory when path is empty. A missing default file is not
// an error; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("btps_factor", 1.081)
	v.SetDefault("o2_per_liter", 25.0)
	v.SetDefault("pnp_codepage", 866)
	v.SetDefault("zak_codepage", 1251)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("MEDCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("medconv")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Decoder returns the charmap decoder for a configured codepage number.
func Decoder(codepage int) (*encoding.Decoder, error) {
	switch codepage {
	case 866:
		return charmap.CodePage866.NewDecoder(), nil
	case 1251:
		return charmap.Windows1251.NewDecoder(), nil
	case 1252:
		return charmap.Windows1252.NewDecoder(), nil
	case 437:
		return charmap.CodePage437.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported codepage %d", codepage)
	}
}
