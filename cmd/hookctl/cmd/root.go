// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "HOOKCTL"

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:        "hookctl",
		Short:      "Transfer hook CLI",
		SuggestFor: []string{"hook", "transferhook"},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return initConfig()
		},
	}
)

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.AddCommand(
		addressesCmd,
		descriptorsCmd,
		simulateCmd,
		serveCmd,
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file")
	flags.String(logLevelKey, "info", "log level")
	flags.String(dbDirKey, "", "account database directory, in memory if empty")
	flags.String(listenAddressKey, defaultListenAddress, "address the RPC server listens on")
	flags.Int(cacheSizeKey, defaultCacheSize, "byte budget of the address derivation cache")
	flags.Uint32(maxAccountSizeKey, defaultMaxAccountSize, "maximum account data size in bytes")
	flags.Uint32(maxResizeIncreaseKey, defaultMaxResizeIncrease, "maximum account growth per transaction in bytes")
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", configFile, err)
	}
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}
