//go:build !glowdebug

package glow

// precondition is a no-op in production builds. Build with -tags glowdebug
// to turn the engine's internal precondition checks into panics.
func precondition(bool, string, ...any) {}
