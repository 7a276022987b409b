package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	cfgKeyAPIURL    = "api_url"
	cfgKeyWSURL     = "ws_url"
	cfgKeySessionDB = "session_db"

	defaultAPIURL = "http://localhost:8080"
	defaultWSURL  = "ws://localhost:8090/ws"
)

// loadConfig reads the config file with viper. A missing file is not an
// error; defaults cover a local single-machine setup.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyAPIURL, defaultAPIURL)
	v.SetDefault(cfgKeyWSURL, defaultWSURL)
	v.SetEnvPrefix("BOARDSYNC")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(home, ".boardsync"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		if os.IsNotExist(err) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}
