// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultVersion is displayed when the engine does not report its version.
const DefaultVersion = "7.15.0"

type Config struct {
	Server  Server  `yaml:"server" json:"server"` // configuration of the public REST server
	Name    string  `yaml:"name" json:"name" env:"APP_NAME" env-default:"zenbpm-history"` // used for OTEL as an application identifier
	Engine  Engine  `yaml:"engine" json:"engine"`
	Tracing Tracing `yaml:"tracing" json:"tracing"`
	History History `yaml:"history" json:"history"`
}

type Server struct {
	Context string `yaml:"context" json:"context" env:"REST_API_CONTEXT" env-default:"/"`
	Addr    string `yaml:"addr" json:"addr" env:"REST_API_ADDR" env-default:":8080"`
}

// Engine holds the location and credentials of the process engine REST API.
type Engine struct {
	Url      string        `yaml:"url" json:"url" env:"ENGINE_REST_URL" env-default:"http://localhost:8080/engine-rest"`
	Username string        `yaml:"username" json:"username" env:"ENGINE_REST_USERNAME"`
	Password string        `yaml:"password" json:"-" env:"ENGINE_REST_PASSWORD"`
	Token    string        `yaml:"token" json:"-" env:"ENGINE_REST_TOKEN"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" env:"ENGINE_REST_TIMEOUT" env-default:"30s"`
}

type Tracing struct {
	Enabled         bool     `yaml:"enabled" json:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Name            string   `yaml:"name" json:"name" env:"OTEL_NAME" env-default:"zenbpm-history"`
	Endpoint        string   `yaml:"endpoint" json:"endpoint" env:"OTEL_ENDPOINT" env-default:"localhost:4318"`
	TransferHeaders []string `yaml:"transferHeaders" json:"transferHeaders" env:"OTEL_TRANSFER_HEADERS" env-separator:","`
}

type History struct {
	// DefaultVersion replaces an empty engine version string
	DefaultVersion string `yaml:"defaultVersion" json:"defaultVersion" env:"HISTORY_DEFAULT_VERSION" env-default:"7.15.0"`
	// InstanceListMaxResults limits the definition history tab
	InstanceListMaxResults int `yaml:"instanceListMaxResults" json:"instanceListMaxResults" env:"HISTORY_INSTANCE_LIST_MAX_RESULTS" env-default:"1000"`
}

func (c Config) defaults() Config {
	if c.History.DefaultVersion == "" {
		c.History.DefaultVersion = DefaultVersion
	}
	if c.History.InstanceListMaxResults <= 0 {
		c.History.InstanceListMaxResults = 1000
	}
	if c.Tracing.Name == "" {
		c.Tracing.Name = c.Name
	}
	c.Engine.Url = strings.TrimSuffix(c.Engine.Url, "/")
	if !strings.HasPrefix(c.Server.Context, "/") {
		c.Server.Context = "/" + c.Server.Context
	}
	return c
}

// InitConfig reads the configuration from CONFIG_FILE or ./conf.yaml and
// falls back to the environment when no file exists. It panics on invalid input.
func InitConfig() Config {
	c, err := ReadConfig()
	if err != nil {
		fmt.Printf("Error occurred while reading the configuration: %s\n", err)
		panic(err)
	}
	return c
}

func ReadConfig() (Config, error) {
	c := Config{}
	var fileName string
	confFile := os.Getenv("CONFIG_FILE")
	if confFile == "" {
		wd, err := os.Getwd()
		if err != nil {
			return c, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		fileName = fmt.Sprintf("%s/conf.yaml", wd)
	} else {
		fileName = confFile
	}
	var err error
	if _, perr := os.Stat(fileName); errors.Is(perr, os.ErrNotExist) {
		err = cleanenv.ReadEnv(&c)
		fmt.Printf("Configuration file %s not found. Reading config from ENV.\n", fileName)
	} else {
		err = cleanenv.ReadConfig(fileName, &c)
	}
	if err != nil {
		return c, err
	}
	return c.defaults(), nil
}
