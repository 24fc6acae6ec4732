package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ManagerAPI is the base URL of the external yield manager's HTTP API.
	ManagerAPI string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	ManagerAPI, err = getEnv("MANAGER_API")
	if err != nil {
		return err
	}

	log.Debug().
		Str("ManagerAPI", ManagerAPI).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
