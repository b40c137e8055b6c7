/*
Package secrets resolves credentials referenced from configuration.

# Overview

Configuration values may carry references of the form ${secret:name}. A
Manager resolves each name through an ordered list of providers, the first
provider that knows the name wins, and keeps resolved values in a TTL cache.

# Providers

  - EnvProvider: reads PREFIX + upper-cased name with hyphens replaced by
    underscores ("anthropic-api-key" -> "CONVERSE_SECRET_ANTHROPIC_API_KEY")
  - SSMProvider: reads a SecureString parameter from AWS Systems Manager
    Parameter Store at prefix + name, decrypted

A provider that does not hold a name returns ErrNotFound and the manager moves
on to the next one. Any other provider error stops resolution.

# Basic Usage

	manager := secrets.NewManager(
		[]secrets.Provider{
			secrets.NewEnvProvider("CONVERSE_SECRET_"),
			secrets.NewSSMProvider(ssm.NewFromConfig(awsCfg), "/converse/"),
		},
		secrets.CacheConfig{TTL: 5 * time.Minute},
		logger,
	)

	apiKey, err := manager.Resolve(ctx, cfg.Classifier.APIKey)

Values without a reference are returned unchanged.

# Security

Secret values are never logged. Secret names are redacted to their first and
last two characters in debug logs.
*/
package secrets
