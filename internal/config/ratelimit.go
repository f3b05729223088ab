package config

import "time"

// RateLimitConfig configures the token bucket.  Capacity tokens are
// available up front and RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool          `env:"ENABLED"         envDefault:"true"`
	Capacity       int           `env:"CAPACITY"        envDefault:"60"`
	RefillTokens   int           `env:"REFILL_TOKENS"   envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"1s"`
	TTL            time.Duration `env:"TTL"             envDefault:"10m"`
	KeyStrategy    string        `env:"KEY_STRATEGY"    envDefault:"ip_user_route"`
	Prefix         string        `env:"PREFIX"          envDefault:"rl"`
	Debug          bool          `env:"DEBUG"           envDefault:"false"`
}

func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}
