package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a provider that does not hold the requested
// secret.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from a backend.
type Provider interface {
	// GetSecret retrieves a secret by name. It returns an error wrapping
	// ErrNotFound when the backend has no such secret.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name identifies the provider in logs (env, ssm).
	Name() string
}
