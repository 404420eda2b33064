// Package config loads bridge configuration from YAML.
//
// Configuration covers the tunable surface of a session: queue and stream
// sizes, which engine implementation to construct, and logging. Missing
// values fall back to working defaults, so an empty file is a valid
// configuration.
package config
