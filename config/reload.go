package config

import (
	"fmt"
	"log/slog"
)

// Reload re-reads path and, if it is valid, replaces the configuration held
// by provider. On error the provider keeps its current value.
func Reload(path string, provider *Provider, logger *slog.Logger) error {
	logger.Debug("Reload: Attempting to read configuration", "path", path)
	newCfg, err := Load(path)
	if err != nil {
		logger.Error("Reload: Failed to load configuration", "path", path, "error", err)
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	if fields := ChangedRestartFields(provider.Get(), newCfg); len(fields) > 0 {
		logger.Warn("Reload: Changed fields take effect after a restart", "fields", fields)
	}

	provider.Update(newCfg)
	logger.Info("Reload: Configuration successfully reloaded", "path", path)
	return nil
}

// ChangedRestartFields lists the fields that differ between old and next and
// are only read at startup.
func ChangedRestartFields(old, next *Config) []string {
	fields := []string{}
	if old == nil || next == nil {
		return fields
	}
	if old.Db != next.Db {
		fields = append(fields, "Db")
	}
	if old.Pool != next.Pool {
		fields = append(fields, "Pool")
	}
	if old.Cache != next.Cache {
		fields = append(fields, "Cache")
	}
	if old.Log.Format != next.Log.Format || old.Log.Batch != next.Log.Batch {
		fields = append(fields, "Log.Format/Log.Batch")
	}
	if old.Metrics != next.Metrics {
		fields = append(fields, "Metrics")
	}
	return fields
}
