package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/kiwoomapi.db"
	}
	if c.Bridge.TimeoutSeconds <= 0 {
		c.Bridge.TimeoutSeconds = 10
	}
	if c.Bootstrap.Name == "" {
		c.Bootstrap.Name = "default"
	}
	if c.Bootstrap.TradeMode == "" {
		c.Bootstrap.TradeMode = "paper"
	}
	if c.Bootstrap.MaxBuyAmount <= 0 {
		c.Bootstrap.MaxBuyAmount = 1_000_000
	}
	if c.Bootstrap.MaxBuyPerInstrument <= 0 {
		c.Bootstrap.MaxBuyPerInstrument = 500_000
	}
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Bridge.URL) == "" {
		return fmt.Errorf("bridge.url is required")
	}
	switch c.Bootstrap.TradeMode {
	case "paper", "live":
	default:
		return fmt.Errorf("bootstrap.trade_mode must be paper or live, got %q", c.Bootstrap.TradeMode)
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level %q is not a known level", c.App.LogLevel)
	}
	return nil
}
