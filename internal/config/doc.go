// Package config provides configuration management for bckey.
// It loads configuration from multiple sources, validates it, and exposes a
// type-safe struct to the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// The file is read from $BCKEY_CONFIG, or the first of bckey.yaml and
// configs/bckey.yaml that exists. Unknown keys in the file are an error.
//
// # Environment Variables
//
// All environment variables follow the pattern BCKEY_<SECTION>_<FIELD>:
//
//	BCKEY_LOGGING_LEVEL=debug
//	BCKEY_LOGGING_OUTPUT=both
//	BCKEY_LICENSE_WORKERS=8
//	BCKEY_LICENSE_RATE_LIMIT_RPS=5
//	BCKEY_MACHINE_PREFERRED_PREFIXES=eth,wlan,en
//	BCKEY_TELEMETRY_METRICS_ADDR=127.0.0.1:9464
//
// # Validation
//
// Load validates the merged result with struct tags and reports every
// failing field in a single CONFIG error.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
// Tests should start from config.Default(), which never reads the
// environment or the file system.
package config
