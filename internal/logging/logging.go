// Package logging sets up the structured logger shared by the server
// and the engine it embeds, replacing original_source's env_logger-
// based log_init with zap's idiomatic equivalent.
package logging

import "go.uber.org/zap"

// New builds a production zap logger. When debug is true it uses
// zap's development config instead (console-friendly, debug level).
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
