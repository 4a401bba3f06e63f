package main

import (
	"io/ioutil"

	"github.com/BurntSushi/toml"
)

const (
	defaultBindHost      = ""
	defaultBindPort      = 5555
	defaultDebugBindHost = "localhost"
	defaultDebugBindPort = 8080
	defaultDataDir       = "./data"
)

// config represents the configuration format for the node, the same
// flag-path + TOML-decode shape as the teacher's config.go.
type config struct {
	BindHost      string     `toml:"bind-host"`
	BindPort      int        `toml:"bind-port"`
	DebugBindHost string     `toml:"debug-bind-host"`
	DebugBindPort int        `toml:"debug-bind-port"`
	DataDir       string     `toml:"data-dir"`
	LogJSON       bool       `toml:"log-json-output"`
	StrictMode    bool       `toml:"strict-mode"`
	TLS           tlsConfig  `toml:"tls"`
	Redis         redisConfig `toml:"redis"`
}

// tlsConfig names the PEM files used for mutual TLS (spec §6).
type tlsConfig struct {
	CertFile      string `toml:"cert-file"`
	KeyFile       string `toml:"key-file"`
	TrustRootFile string `toml:"trust-root-file"`
}

// redisConfig selects the optional Redis-backed store.RedisStore instead
// of the default embedded store.BoltStore.
type redisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Address  string `toml:"address"`
	Password string `toml:"password"`
}

// loadConfig returns a config with reasonable defaults, overridden by the
// TOML file at configPath when non-empty.
func loadConfig(configPath string) (*config, error) {
	conf := &config{
		BindHost:      defaultBindHost,
		BindPort:      defaultBindPort,
		DebugBindHost: defaultDebugBindHost,
		DebugBindPort: defaultDebugBindPort,
		DataDir:       defaultDataDir,
	}
	if configPath != "" {
		if err := tomlToConfig(configPath, conf); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// tomlToConfig merges the toml file at tomlPath into conf.
func tomlToConfig(tomlPath string, conf *config) error {
	bs, err := ioutil.ReadFile(tomlPath)
	if err != nil {
		return err
	}
	_, err = toml.Decode(string(bs), conf)
	return err
}
