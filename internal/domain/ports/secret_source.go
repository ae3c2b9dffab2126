package ports

import "context"

// Secret is a value read from a secret store
type Secret struct {
	Value    string
	Version  string
	Metadata map[string]string
}

// SecretSource reads secrets by path. The gateway API key is the only
// secret this service needs.
type SecretSource interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
