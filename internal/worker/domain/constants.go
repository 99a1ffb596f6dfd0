package domain

import "time"

// Worker defaults
const (
	DefaultConcurrency       = 2
	DefaultQueueSize         = 64
	DefaultHeartbeatInterval = 30 * time.Second
)
