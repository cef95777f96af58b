// Package logger builds the application's zap logger.
package logger

import "go.uber.org/zap"

// New returns a production JSON logger when env is "production" and a
// human-readable development logger otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
