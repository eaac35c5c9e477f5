// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and an
// optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// URL seeds the server-address prompt (the persisted session wins
	// when present).
	URL string

	// TimeoutSeconds is the transport timeout applied to every API call.
	TimeoutSeconds int

	// LogLevel sets the zap logging level.
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.URL, "url", "", "server address to offer as default")
	flag.IntVar(&options.TimeoutSeconds, "timeout", 10, "transport timeout in seconds")
	flag.StringVar(&options.LogLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. A .env file in the working directory is loaded first
// when present. It returns a pointer to the Options struct containing the
// parsed configuration values.
func Parse() *Options {
	_ = godotenv.Load()
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverURL := os.Getenv("WGDASH_URL"); serverURL != "" {
		options.URL = serverURL
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options
}
