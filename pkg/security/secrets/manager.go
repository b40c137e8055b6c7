package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
)

// secretRefRegex matches ${secret:name} patterns in configuration.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets through an ordered list of providers.
type Manager struct {
	providers []Provider
	cache     *Cache
	logger    *slog.Logger
}

// NewManager creates a secret manager. Providers are tried in order.
func NewManager(providers []Provider, cacheConfig CacheConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default().With("component", "secrets")
	}
	return &Manager{
		providers: providers,
		cache:     NewCache(cacheConfig),
		logger:    logger,
	}
}

// GetSecret returns the value from the first provider that holds name.
// Providers reporting ErrNotFound are skipped; any other provider error is
// returned immediately.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		m.logger.DebugContext(ctx, "secret cache hit", "name", redactSecretName(name))
		return value, nil
	}

	for _, provider := range m.providers {
		value, err := provider.GetSecret(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("provider %s: %w", provider.Name(), err)
		}

		m.cache.Set(name, value)
		m.logger.DebugContext(ctx, "secret resolved",
			"provider", provider.Name(),
			"name", redactSecretName(name),
		)
		return value, nil
	}

	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve replaces every ${secret:name} reference in value. A value without
// references is returned unchanged. All unresolved references are reported in
// the returned error.
func (m *Manager) Resolve(ctx context.Context, value string) (string, error) {
	var errs []error

	output := secretRefRegex.ReplaceAllStringFunc(value, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		resolved, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve secret %q: %w", name, err))
			return match
		}
		return resolved
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return output, nil
}

// Refresh drops cached values so the next lookup hits the providers.
func (m *Manager) Refresh() {
	m.cache.Clear()
	m.logger.Info("secret cache cleared")
}

// IsReference reports whether value contains a ${secret:name} reference.
func IsReference(value string) bool {
	return secretRefRegex.MatchString(value)
}

// redactSecretName keeps the first and last two characters of name.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
