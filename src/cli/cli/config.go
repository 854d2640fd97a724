// MIT License
//
// Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/cli/cli/config.go
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
)

// Config is the effective configuration after defaults, the config file,
// LAMPORT_* environment variables and flags have been merged.
type Config struct {
	DataDir  string     `mapstructure:"datadir" yaml:"datadir"`
	Keystore string     `mapstructure:"keystore" yaml:"keystore"`
	Digest   string     `mapstructure:"digest" yaml:"digest"`
	Remote   string     `mapstructure:"remote" yaml:"remote,omitempty"`
	HTTP     HTTPConfig `mapstructure:"http" yaml:"http"`
	Log      LogConfig  `mapstructure:"log" yaml:"log"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

const (
	KeystoreLevelDB = "leveldb"
	KeystoreMemory  = "memory"

	DefaultHTTPAddr = "127.0.0.1:8545"
	envPrefix       = "LAMPORT"
	configName      = "lamport"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:  common.DataDir,
		Keystore: KeystoreLevelDB,
		Digest:   lamport.DefaultDigest,
		HTTP:     HTTPConfig{Addr: DefaultHTTPAddr},
		Log:      LogConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("datadir", d.DataDir)
	v.SetDefault("keystore", d.Keystore)
	v.SetDefault("digest", d.Digest)
	v.SetDefault("remote", d.Remote)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

// loadConfig reads path, or lamport.yaml from the working directory when
// path is empty, and merges it with the environment.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	switch cfg.Keystore {
	case KeystoreLevelDB, KeystoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown keystore %q (want %s or %s)", cfg.Keystore, KeystoreLevelDB, KeystoreMemory)
	}
	return cfg, nil
}
