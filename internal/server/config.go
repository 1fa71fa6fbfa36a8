package server

import "github.com/raysh454/mdinject/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// AllowedOrigins is matched against the Origin header for CORS and
	// websocket upgrades. Empty or "*" allows any origin.
	AllowedOrigins []string

	Logger logging.Logger
}
