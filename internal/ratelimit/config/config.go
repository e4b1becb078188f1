package config

import (
	"time"

	"zeropass/internal/ratelimit/models"
)

// Config holds per-IP limits by endpoint class.
type Config struct {
	IPLimits map[models.EndpointClass]Limit
}

type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		IPLimits: map[models.EndpointClass]Limit{
			models.ClassProofVerify: {RequestsPerWindow: 30, Window: time.Minute},
			models.ClassWrite:       {RequestsPerWindow: 20, Window: time.Minute},
			models.ClassRead:        {RequestsPerWindow: 120, Window: time.Minute},
		},
	}
}

// WithProofVerifyLimit overrides the proof verification limit. Non-positive
// values keep the default.
func (c *Config) WithProofVerifyLimit(requests int, window time.Duration) *Config {
	return c.WithClassLimit(models.ClassProofVerify, requests, window)
}

func (c *Config) WithClassLimit(class models.EndpointClass, requests int, window time.Duration) *Config {
	l := c.IPLimits[class]
	if requests > 0 {
		l.RequestsPerWindow = requests
	}
	if window > 0 {
		l.Window = window
	}
	c.IPLimits[class] = l
	return c
}

func (c *Config) GetIPLimit(class models.EndpointClass) (int, time.Duration, bool) {
	l, ok := c.IPLimits[class]
	if !ok || l.RequestsPerWindow <= 0 || l.Window <= 0 {
		return 0, 0, false
	}
	return l.RequestsPerWindow, l.Window, true
}
