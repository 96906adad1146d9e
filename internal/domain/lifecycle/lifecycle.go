// Package lifecycle holds shared start and stop timeouts.
package lifecycle

import "time"

const (
	// DefaultTimeout bounds start hooks and graceful shutdown of each component.
	DefaultTimeout = 10 * time.Second
)
