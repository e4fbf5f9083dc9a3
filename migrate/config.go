/*
 * Copyright 2019 Amazon.com, Inc. or its affiliates. All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"). You
 * may not use this file except in compliance with the License. A copy of
 * the License is located at
 *
 * 	http://aws.amazon.com/apache2.0/
 *
 * or in the "license" file accompanying this file. This file is
 * distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF
 * ANY KIND, either express or implied. See the License for the specific
 * language governing permissions and limitations under the License.
 */
package migrate

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the migration settings, read from an optional YAML file with
// CLI flag overrides.
type Config struct {
	// Account is the target registry account id.
	Account string `yaml:"account"`
	// Region is the target registry region.
	Region string `yaml:"region"`
	// BaseRepo is "docker-dev" or "docker-release".
	BaseRepo string `yaml:"base_repo"`
	// Platform pins pulls to a single architecture.
	Platform string `yaml:"platform"`
	// SkipPull assumes source images are already present locally.
	SkipPull bool `yaml:"skip_pull"`
	// LogPrefix is the path prefix of the three outcome lists.
	LogPrefix string `yaml:"log_prefix"`
	// RefreshNames lists trimmed names exempted from duplicate-skip.
	RefreshNames []string `yaml:"refresh_names"`
	// Concurrency bounds how many artifacts the batch driver migrates at
	// once.
	Concurrency int `yaml:"concurrency"`
	// SourceAuth authenticates pulls from the source registry; empty means
	// anonymous.
	SourceAuth struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"source_auth"`
}

// DefaultConfig returns the configuration used when no file or flags are
// given.
func DefaultConfig() Config {
	return Config{
		BaseRepo:     string(ScopeDev),
		Platform:     "linux/amd64",
		RefreshNames: []string{"docker:dind"},
		Concurrency:  1,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: parse file")
	}
	return cfg, nil
}

// Validate checks the fields every migration needs.
func (c Config) Validate() error {
	if c.Account == "" {
		return errors.New("config: account is required")
	}
	if c.Region == "" {
		return errors.New("config: region is required")
	}
	if _, err := ParseScope(c.BaseRepo); err != nil {
		return errors.Wrap(err, "config: base_repo")
	}
	if c.Concurrency < 1 {
		return errors.New("config: concurrency must be at least 1")
	}
	return nil
}
