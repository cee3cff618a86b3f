package ws

import (
	"time"

	"golang.org/x/time/rate"
)

// Config holds websocket transport settings
type Config struct {
	// AllowedOrigins lists accepted Origin headers. Empty accepts any origin.
	AllowedOrigins []string

	// ReadLimit caps the size of one inbound frame in bytes
	ReadLimit int64

	// SendBufferSize is the per-connection outbound queue length
	SendBufferSize int

	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration

	// InboundRate and InboundBurst throttle frames per connection
	InboundRate  rate.Limit
	InboundBurst int
}

// DefaultConfig returns default transport settings
func DefaultConfig() Config {
	return Config{
		ReadLimit:      64 * 1024,
		SendBufferSize: 256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		InboundRate:    60,
		InboundBurst:   120,
	}
}

func (c Config) originAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
