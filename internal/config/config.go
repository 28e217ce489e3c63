// Package config loads server configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the serve-mode configuration.
type Config struct {
	HTTPPort  int    `yaml:"http_port"`
	HTTPSPort int    `yaml:"https_port"`
	APIPort   int    `yaml:"api_port"`
	DBPath    string `yaml:"db"`

	// LBHeader is the trusted forwarding header carrying the load
	// balancer address.
	LBHeader string `yaml:"lb_header"`

	// APISecret, when set, gates the API behind bearer auth.
	APISecret string `yaml:"api_secret"`

	TLSCertFile string `yaml:"tls_cert"`
	TLSKeyFile  string `yaml:"tls_key"`

	ACMEDomain  string `yaml:"acme_domain"`
	ACMEEmail   string `yaml:"acme_email"`
	ACMEStaging bool   `yaml:"acme_staging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:  8080,
		HTTPSPort: 8443,
		APIPort:   8081,
		DBPath:    "dtoken.db",
		LBHeader:  "X-TS-LB",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then DTOKEN_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envInt("DTOKEN_HTTP_PORT", &c.HTTPPort)
	envInt("DTOKEN_HTTPS_PORT", &c.HTTPSPort)
	envInt("DTOKEN_API_PORT", &c.APIPort)
	envStr("DTOKEN_DB", &c.DBPath)
	envStr("DTOKEN_LB_HEADER", &c.LBHeader)
	envStr("DTOKEN_API_SECRET", &c.APISecret)
	envStr("DTOKEN_TLS_CERT", &c.TLSCertFile)
	envStr("DTOKEN_TLS_KEY", &c.TLSKeyFile)
	envStr("DTOKEN_ACME_DOMAIN", &c.ACMEDomain)
	envStr("DTOKEN_ACME_EMAIL", &c.ACMEEmail)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
