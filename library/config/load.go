// Package config loads the process settings file into the shared configuration store.
package config

import (
	"path/filepath"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/vihaankava/nonprofit/library/log"
)

// LoadFromFile loads the YAML settings file at cfgPath into gconfig.Shared.
// An empty path is allowed and leaves the shared store untouched, since every
// search setting can also come from the environment.
func LoadFromFile(cfgPath string) {
	if cfgPath == "" {
		log.Logger.Info("no configuration file given, using environment only")
		return
	}

	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}
