package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads envFile whenever it changes and hands the rebuilt config to
// onChange. Invalid edits are logged and skipped. Callers must only apply
// settings that are safe to change at runtime.
func Watch(envFile string, logger *slog.Logger, onChange func(*Config)) error {
	if _, err := os.Stat(envFile); err != nil {
		return fmt.Errorf("watch %s: %w", envFile, err)
	}
	v, err := newViper(envFile)
	if err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := build(v)
		if err != nil {
			logger.Warn("config reload rejected", "file", e.Name, "err", err)
			return
		}
		logger.Info("config reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
