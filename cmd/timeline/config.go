package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// config is the CLI configuration: YAML file, then environment, then flags.
type config struct {
	// Accounts uses the ParseAccounts format: user:pass[:auth_token:ct0[:totp]],...
	Accounts     string `yaml:"accounts"`
	DB           string `yaml:"db"`
	Proxy        string `yaml:"proxy"`
	LogFile      string `yaml:"log_file"`
	PageSize     int    `yaml:"page_size"`
	RecentLimit  int    `yaml:"recent_limit"`
	MetricsAddr  string `yaml:"metrics_addr"`
	// CapsolverKey enables solving login CAPTCHAs through capsolver.com.
	CapsolverKey string `yaml:"capsolver_api_key"`
}

func appDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".go-timeline")
}

func defaultConfigPath() string {
	return filepath.Join(appDir(), "config.yaml")
}

// loadConfig reads .env and the YAML file at path, then applies environment overrides.
// Missing files are not an error.
func loadConfig(path string) (config, error) {
	var cfg config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.defaults()
	return cfg, nil
}

func (c *config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TIMELINE_ACCOUNTS":      &c.Accounts,
		"TIMELINE_DB":            &c.DB,
		"TIMELINE_PROXY":         &c.Proxy,
		"TIMELINE_LOG_FILE":      &c.LogFile,
		"TIMELINE_METRICS_ADDR":  &c.MetricsAddr,
		"TIMELINE_CAPSOLVER_KEY": &c.CapsolverKey,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TIMELINE_PAGE_SIZE":    &c.PageSize,
		"TIMELINE_RECENT_LIMIT": &c.RecentLimit,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func (c *config) defaults() {
	if c.DB == "" {
		c.DB = filepath.Join(appDir(), "timeline.db")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(appDir(), "timeline.log")
	}
}
