// Package cli provides CLI commands for the ronda application.
package cli

import (
	"context"
)

// NewContext creates the base context for one CLI invocation.
func NewContext() context.Context {
	return context.Background()
}
