package util

import (
	"time"

	"github.com/google/uuid"
)

const uuidRetries = 10

// NewUUID returns a time-ordered v7 id. After repeated v7 failures it falls
// back to a random v4 id.
func NewUUID() string {
	for i := 0; i < uuidRetries; i++ {
		if id, err := uuid.NewV7(); err == nil {
			return id.String()
		}
		// v7 has 100ns precision
		time.Sleep(200 * time.Nanosecond)
	}
	return uuid.NewString()
}

// NewOrigin returns an id that names one context on the change bus.
func NewOrigin() string {
	return "ctx-" + NewUUID()
}
