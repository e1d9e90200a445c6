package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Release mode logs JSON, everything else
// logs human-readable console output at debug level.
func New(ginMode string) (*zap.Logger, error) {
	if ginMode == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
