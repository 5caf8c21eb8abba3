package config

import "strings"

// Redacted returns a copy safe to print or serve: API keys keep only their
// last four characters.
func (c *Config) Redacted() *Config {
	out := *c
	out.Providers.TMDB.APIKey = MaskSecret(c.Providers.TMDB.APIKey)
	out.Providers.GoogleBooks.APIKey = MaskSecret(c.Providers.GoogleBooks.APIKey)
	out.API.AllowedOrigins = append([]string(nil), c.API.AllowedOrigins...)
	out.Undo.CleanupFloors = append([]string(nil), c.Undo.CleanupFloors...)
	return &out
}

// MaskSecret hides all but the tail of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
