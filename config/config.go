// Package config loads the scheduler configuration from a YAML or JSON file
// with optional environment overrides (MMT_SECTION__KEY).
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/richardjcool/MMTQueue/core/campaign"
	"github.com/richardjcool/MMTQueue/core/metrics"
)

type Config struct {
	Catalog   CatalogConfig   `json:"catalog"`
	Ephemeris EphemerisConfig `json:"ephemeris"`
	Campaign  campaign.Config `json:"campaign"`
	Output    OutputConfig    `json:"output"`
	Metrics   metrics.Config  `json:"metrics"`
	Logging   LoggingConfig   `json:"logging"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("MMT_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "mmt_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Campaign.SetDefaults()
	cfg.Output.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Catalog.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ephemeris.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Campaign.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
