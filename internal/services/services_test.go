package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weirdmachine64/kali-docker-mcp/internal/apperrors"
	"github.com/weirdmachine64/kali-docker-mcp/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Services: map[string]config.Service{
			"shodan": {"enabled": true, "api_key": "shodan-key"},
			"github": {"enabled": false, "token": "gh-token"},
			"censys": {"enabled": true, "api_id": "id", "api_secret": "secret"},
		},
	}
}

func TestAllEnabled(t *testing.T) {
	enabled := AllEnabled(testConfig())

	require.Len(t, enabled, 2)
	assert.Contains(t, enabled, "shodan")
	assert.Contains(t, enabled, "censys")
	assert.NotContains(t, enabled, "github")
	assert.Equal(t, "shodan-key", enabled["shodan"]["api_key"])
}

func TestAllEnabled_NoServices(t *testing.T) {
	assert.Empty(t, AllEnabled(&config.Config{}))
}

func TestForService(t *testing.T) {
	// Disabled services are still addressable by name.
	svc, err := ForService(testConfig(), "github")
	require.NoError(t, err)
	assert.Equal(t, "gh-token", svc["token"])

	_, err = ForService(testConfig(), "virustotal")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
