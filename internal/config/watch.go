package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
)

// Watch reloads the config file on FS change events and hands each valid
// snapshot to onChange. Invalid edits are logged and skipped; the previous
// snapshot stays in effect.
func Watch(path string, onChange func(*Config)) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config watcher requires path")
	}
	if onChange == nil {
		return fmt.Errorf("config watcher requires a change handler")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
			dc.WeaklyTypedInput = true
		}); err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		cfg.applyDefaults()
		if err := validate(&cfg); err != nil {
			logger.Errorf("config reload rejected (%s): %v", evt.Name, err)
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
