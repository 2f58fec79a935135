package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"

	"bitunix-signal-bot/config"
)

// Client reads the exchange API credential pair from Vault's KV v2
// engine. Optional: when disabled, credentials come from the environment.
type Client struct {
	client *api.Client
	config config.VaultConfig
	logger zerolog.Logger
}

// Credentials is the API key pair stored under the configured path.
type Credentials struct {
	APIKey    string
	SecretKey string
}

// NewClient connects to Vault. Returns an error when enabled but
// unreachable or missing a token.
func NewClient(cfg config.VaultConfig, logger zerolog.Logger) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg, logger: logger}, nil
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("vault enabled but VAULT_TOKEN is empty")
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{
		client: client,
		config: cfg,
		logger: logger.With().Str("component", "Vault").Logger(),
	}, nil
}

// IsEnabled reports whether Vault lookups are active.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// GetCredentials reads the API key pair from the configured secret path.
func (c *Client) GetCredentials(ctx context.Context) (*Credentials, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("vault is disabled")
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("credentials not found at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format at %s", path)
	}

	creds := &Credentials{
		APIKey:    getString(data, "api_key"),
		SecretKey: getString(data, "secret_key"),
	}
	if creds.APIKey == "" || creds.SecretKey == "" {
		return nil, fmt.Errorf("incomplete credentials at %s", path)
	}

	c.logger.Info().Str("path", path).Msg("credentials loaded from vault")
	return creds, nil
}

// Health pings Vault.
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if !health.Initialized || health.Sealed {
		return fmt.Errorf("vault not ready: initialized=%v sealed=%v", health.Initialized, health.Sealed)
	}
	return nil
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
