// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package settings loads the service settings.
//
// Settings are layered, later sources winning:
//
//  1. Built-in defaults (Defaults)
//  2. settings.yaml
//  3. .secrets.yaml
//  4. .env file variables
//  5. SCMS_* process environment variables
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCMS_"

// Tracing configures the OpenTelemetry exporter.
type Tracing struct {
	// Exporter is one of none, stdout, otlp.
	Exporter string `yaml:"exporter" json:"exporter" validate:"oneof=none stdout otlp"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string `yaml:"endpoint" json:"endpoint" validate:"required_if=Exporter otlp"`
}

// Stores holds the backing file of every category.
type Stores struct {
	Chains         string `yaml:"chains" json:"chains" validate:"required"`
	Commands       string `yaml:"commands" json:"commands" validate:"required"`
	Configurations string `yaml:"configurations" json:"configurations" validate:"required"`
	Parameters     string `yaml:"parameters" json:"parameters" validate:"required"`
}

// Settings is the service configuration.
type Settings struct {
	Host        string  `yaml:"host" json:"host" validate:"required"`
	Port        int     `yaml:"port" json:"port" validate:"min=1,max=65535"`
	Workers     int     `yaml:"workers" json:"workers" validate:"min=1"`
	LogLevel    string  `yaml:"log-level" json:"log-level" validate:"oneof=trace debug info warn warning error critical fatal"`
	Debug       bool    `yaml:"debug" json:"debug"`
	Reload      bool    `yaml:"reload" json:"reload"`
	LogDir      string  `yaml:"log_dir" json:"log_dir"`
	HistorySize int     `yaml:"history_size" json:"history_size" validate:"min=0"`
	Tracing     Tracing `yaml:"tracing" json:"tracing"`
	Stores      Stores  `yaml:"stores" json:"stores"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Host:        "0.0.0.0",
		Port:        9999,
		Workers:     5,
		LogLevel:    "info",
		Reload:      true,
		HistorySize: 100,
		Tracing:     Tracing{Exporter: "none"},
		Stores: Stores{
			Chains:         "config/chains.yaml",
			Commands:       "config/commands.yaml",
			Configurations: "config/configurations.yaml",
			Parameters:     "config/parameters.yaml",
		},
	}
}

// Addr returns host:port.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorePath returns the backing file for category, or "" if unknown.
func (s *Settings) StorePath(category datatypes.Category) string {
	switch category {
	case datatypes.CategoryChains:
		return s.Stores.Chains
	case datatypes.CategoryCommands:
		return s.Stores.Commands
	case datatypes.CategoryConfigurations:
		return s.Stores.Configurations
	case datatypes.CategoryParameters:
		return s.Stores.Parameters
	}
	return ""
}

// Paths locates the settings sources. Empty paths are skipped.
type Paths struct {
	// Settings is the main settings file. Missing means defaults.
	Settings string

	// Secrets is overlaid on Settings when present.
	Secrets string

	// Env is a dotenv file whose SCMS_* variables are applied when present.
	Env string
}

// DefaultPaths returns the conventional locations.
func DefaultPaths() Paths {
	return Paths{
		Settings: "config/settings.yaml",
		Secrets:  "config/.secrets.yaml",
		Env:      ".env",
	}
}

// Load builds Settings from paths and the process environment.
//
// # Outputs
//
//   - *Settings: The validated settings.
//   - error: Non-nil if a present file is unreadable or malformed, an
//     override cannot be parsed, or the result fails validation.
func Load(paths Paths) (*Settings, error) {
	return load(paths, os.LookupEnv)
}

func load(paths Paths, lookupEnv func(string) (string, bool)) (*Settings, error) {
	s := Defaults()

	for _, path := range []string{paths.Settings, paths.Secrets} {
		if err := overlayYAML(&s, path); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if paths.Env != "" {
		vars, err := godotenv.Read(paths.Env)
		switch {
		case err == nil:
			dotenv = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", paths.Env, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&s, lookup); err != nil {
		return nil, err
	}

	if err := datatypes.Validate(s); err != nil {
		fields := datatypes.FieldErrors("", err)
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			msgs = append(msgs, f.Message)
		}
		return nil, fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}
	return &s, nil
}

func overlayYAML(s *Settings, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// envBinding maps one SCMS_* variable to a setter.
type envBinding struct {
	key string
	set func(s *Settings, v string) error
}

var envBindings = []envBinding{
	{"HOST", func(s *Settings, v string) error { s.Host = v; return nil }},
	{"PORT", intSetter(func(s *Settings) *int { return &s.Port })},
	{"WORKERS", intSetter(func(s *Settings) *int { return &s.Workers })},
	{"LOG_LEVEL", func(s *Settings, v string) error { s.LogLevel = v; return nil }},
	{"DEBUG", boolSetter(func(s *Settings) *bool { return &s.Debug })},
	{"RELOAD", boolSetter(func(s *Settings) *bool { return &s.Reload })},
	{"LOG_DIR", func(s *Settings, v string) error { s.LogDir = v; return nil }},
	{"HISTORY_SIZE", intSetter(func(s *Settings) *int { return &s.HistorySize })},
	{"TRACING_EXPORTER", func(s *Settings, v string) error { s.Tracing.Exporter = v; return nil }},
	{"TRACING_ENDPOINT", func(s *Settings, v string) error { s.Tracing.Endpoint = v; return nil }},
	{"STORES_CHAINS", func(s *Settings, v string) error { s.Stores.Chains = v; return nil }},
	{"STORES_COMMANDS", func(s *Settings, v string) error { s.Stores.Commands = v; return nil }},
	{"STORES_CONFIGURATIONS", func(s *Settings, v string) error { s.Stores.Configurations = v; return nil }},
	{"STORES_PARAMETERS", func(s *Settings, v string) error { s.Stores.Parameters = v; return nil }},
}

func intSetter(field func(*Settings) *int) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(s) = n
		return nil
	}
}

func boolSetter(field func(*Settings) *bool) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(s) = b
		return nil
	}
}

func applyEnv(s *Settings, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		name := EnvPrefix + b.key
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.set(s, v); err != nil {
			return fmt.Errorf("parsing %s=%q: %w", name, v, err)
		}
	}
	return nil
}
