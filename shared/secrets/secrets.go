// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package secrets

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/config"
)

// Secret names as provisioned by the deployment pipeline.
const (
	SecretBrokerURL     = "rabbitmq-connection-string"
	SecretMongoURI      = "mongo-connection-string"
	SecretRedisURL      = "redis-connection-string"
	SecretFoundryAPIKey = "foundry-api-key"
	SecretJWT           = "tool-server-jwt-secret"
)

// Resolver fetches named secrets.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// KeyVaultResolver reads secrets from Azure Key Vault using the ambient
// credential chain (workload identity in AKS, az login locally).
type KeyVaultResolver struct {
	client *azsecrets.Client
}

// NewKeyVaultResolver builds a resolver for the given vault URL.
func NewKeyVaultResolver(vaultURL string) (*KeyVaultResolver, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("key vault credential: %w", err)
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("key vault client for %s: %w", vaultURL, err)
	}
	return &KeyVaultResolver{client: client}, nil
}

// GetSecret fetches the latest version of a secret.
func (r *KeyVaultResolver) GetSecret(ctx context.Context, name string) (string, error) {
	resp, err := r.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s has no value", name)
	}
	return *resp.Value, nil
}

// StaticResolver serves secrets from a fixed map. Used by tests and local
// mode.
type StaticResolver map[string]string

// GetSecret returns the mapped value or an error for unknown names.
func (r StaticResolver) GetSecret(ctx context.Context, name string) (string, error) {
	v, ok := r[name]
	if !ok {
		return "", fmt.Errorf("secret %s not found", name)
	}
	return v, nil
}

// Apply fills unset connection strings in cfg from the resolver. Values
// already present (env or config file) are kept; a missing vault secret
// is not an error, the service falls back to its local mode for that
// dependency.
func Apply(ctx context.Context, r Resolver, cfg *config.Config) error {
	if r == nil {
		return nil
	}
	fill := func(dst *string, name string) {
		if *dst != "" {
			return
		}
		if v, err := r.GetSecret(ctx, name); err == nil && v != "" {
			*dst = v
		}
	}
	fill(&cfg.BrokerURL, SecretBrokerURL)
	fill(&cfg.MongoURI, SecretMongoURI)
	fill(&cfg.RedisURL, SecretRedisURL)
	fill(&cfg.FoundryAPIKey, SecretFoundryAPIKey)
	fill(&cfg.JWTSecret, SecretJWT)
	return nil
}

// ForConfig returns a KeyVaultResolver when the config names a vault,
// otherwise nil (Apply treats nil as a no-op).
func ForConfig(cfg *config.Config) (Resolver, error) {
	if cfg.KeyVaultURL == "" {
		return nil, nil
	}
	return NewKeyVaultResolver(cfg.KeyVaultURL)
}
