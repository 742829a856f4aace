package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidation(t *testing.T) {
	valid := func(mutate func(*Config)) Config {
		c := DefaultConfig()
		c.ServiceAccountPath = "/path/to/key.json"
		if mutate != nil {
			mutate(&c)
		}
		return c
	}

	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name:   "service account",
			config: valid(nil),
		},
		{
			name: "oauth credentials",
			config: valid(func(c *Config) {
				c.ServiceAccountPath = ""
				c.ClientID = "id"
				c.ClientSecret = "secret"
				c.RefreshToken = "refresh"
			}),
		},
		{
			name: "partial oauth credentials",
			config: valid(func(c *Config) {
				c.ServiceAccountPath = ""
				c.ClientID = "id"
				c.RefreshToken = "refresh"
			}),
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "both auth methods",
			config: valid(func(c *Config) {
				c.ClientID = "id"
				c.ClientSecret = "secret"
				c.RefreshToken = "refresh"
			}),
			wantErr: true,
			errMsg:  "multiple authentication methods",
		},
		{
			name:    "zero batch size",
			config:  valid(func(c *Config) { c.BatchSize = 0 }),
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name:    "negative retry delay",
			config:  valid(func(c *Config) { c.RetryDelay = -time.Second }),
			wantErr: true,
			errMsg:  "retry delay cannot be negative",
		},
		{
			name:    "empty sheet name",
			config:  valid(func(c *Config) { c.LedgerSheet = "" }),
			wantErr: true,
			errMsg:  "sheet names",
		},
		{
			name:   "zero retries is valid",
			config: valid(func(c *Config) { c.RetryAttempts = 0; c.RetryDelay = 0 }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
