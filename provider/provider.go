package provider

import "context"

// Provider is the base interface of every external backend.
type Provider interface {
	Name() string
	// IsAvailable reports whether the provider can take requests right now.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider. Factories close over their typed configuration.
type Factory[T Provider] func() (T, error)

// CredentialChecker is implemented by providers that need a credential.
// CheckCredentials must not touch the network.
type CredentialChecker interface {
	CheckCredentials() error
}
