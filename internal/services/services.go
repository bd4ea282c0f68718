// Package services exposes configured third-party service credentials
// (API tokens for recon services like shodan or github) to tool callers.
package services

import (
	"github.com/weirdmachine64/kali-docker-mcp/internal/apperrors"
	"github.com/weirdmachine64/kali-docker-mcp/internal/config"
)

// AllEnabled returns the raw config of every enabled service, keyed by
// service name. Disabled services are withheld.
func AllEnabled(cfg *config.Config) map[string]config.Service {
	return cfg.EnabledServices()
}

// ForService returns the raw config section of one named service.
func ForService(cfg *config.Config, name string) (config.Service, error) {
	svc, ok := cfg.Section(name)
	if !ok {
		return nil, apperrors.NotFound("Service", name)
	}
	return svc, nil
}
