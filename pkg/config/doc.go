// Package config provides configuration management for the conversation
// governance library.
//
// Configuration is loaded from YAML with environment variable overrides:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("converse.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CONVERSE_SECTION_FIELD.
// For example:
//
//   - CONVERSE_CLASSIFIER_API_KEY overrides classifier.api_key
//   - CONVERSE_QUOTA_CACHE_TTL overrides quota.cache_ttl
//   - CONVERSE_LEDGER_BACKEND overrides ledger.backend
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher observes the configuration file and invokes a callback with each
// successfully validated reload. Invalid edits are logged and skipped so the
// last good configuration stays in effect.
package config
