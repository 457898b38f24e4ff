// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"os"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/BlockDevsUnited/transferhook/x/transferhook/host"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/pda"
	"github.com/BlockDevsUnited/transferhook/x/transferhook/simulator"
)

const (
	logLevelKey          = "log-level"
	dbDirKey             = "db-dir"
	listenAddressKey     = "listen-address"
	cacheSizeKey         = "cache-size"
	maxAccountSizeKey    = "max-account-size"
	maxResizeIncreaseKey = "max-resize-increase"

	defaultListenAddress     = "127.0.0.1:9650"
	defaultCacheSize         = units.MiB
	defaultMaxAccountSize    = 10 * units.MiB
	defaultMaxResizeIncrease = 10 * units.KiB
)

func newLogger() (logging.Logger, error) {
	level, err := logging.ToLevel(viper.GetString(logLevelKey))
	if err != nil {
		return nil, err
	}
	core := logging.NewWrappedCore(
		level,
		os.Stderr,
		logging.Colors.ConsoleEncoder(),
	)
	return logging.NewLogger("hookctl", core), nil
}

func simulatorConfig() *simulator.Config {
	limits := host.DefaultLimits()
	limits.MaxAccountDataLen = viper.GetUint32(maxAccountSizeKey)
	limits.MaxPermittedDataIncrease = viper.GetUint32(maxResizeIncreaseKey)

	deriverConfig := pda.DefaultConfig()
	deriverConfig.CacheSize = viper.GetInt(cacheSizeKey)
	return &simulator.Config{
		Limits:  limits,
		Deriver: pda.NewDeriver(deriverConfig),
	}
}

// openStore opens the account database configured by db-dir.
func openStore(log logging.Logger) (*host.PebbleStore, error) {
	dir := viper.GetString(dbDirKey)
	if dir == "" {
		log.Info("using in-memory account store")
	} else {
		log.Info("opening account store", zap.String("dir", dir))
	}
	return host.NewPebbleStore(dir)
}
