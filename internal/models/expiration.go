package models

import "time"

// ExpirationOptions is the enumerated set of lifetimes a share may be
// created with. Anything else is rejected, never clamped.
var ExpirationOptions = map[string]time.Duration{
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ExpirationDuration resolves an expiration option string.
func ExpirationDuration(option string) (time.Duration, bool) {
	d, ok := ExpirationOptions[option]
	return d, ok
}
