// Package vault implements a secret source backed by HashiCorp Vault,
// for teams that keep provider API keys out of the environment.
package vault

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// Source implements secret.Source for HashiCorp Vault.
type Source struct {
	client *vault.Client
}

// Config holds configuration for the Vault source.
type Config struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
}

// New creates a Vault source authenticated with a static token.
func New(cfg Config) (*Source, error) {
	vConfig := vault.DefaultConfig()
	if cfg.Address != "" {
		vConfig.Address = cfg.Address
	}

	client, err := vault.NewClient(vConfig)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	return &Source{client: client}, nil
}

// Get retrieves a secret from Vault.
// Path format: "path/to/secret#key"; #key defaults to "value".
func (s *Source) Get(ctx context.Context, path string) (string, error) {
	secretPath := path
	key := "value"
	if idx := strings.LastIndex(path, "#"); idx != -1 {
		secretPath = path[:idx]
		key = path[idx+1:]
	}

	secret, err := s.client.Logical().ReadWithContext(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("read vault secret %q: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret %q not found", secretPath)
	}

	// Unwrap the KV v2 "data" envelope.
	data := secret.Data
	if v, ok := data["data"]; ok {
		if nested, ok := v.(map[string]interface{}); ok {
			data = nested
		}
	}

	val, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}

	return fmt.Sprintf("%v", val), nil
}

// Close releases client resources.
func (s *Source) Close() error {
	return nil
}
