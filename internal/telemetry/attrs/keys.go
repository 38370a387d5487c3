// Package attrs defines telemetry attribute keys used by the lexcache middlewares,
// so metrics and traces name the same things the same way.
package attrs

const (
	// AttrMethod is the service method being recorded.
	AttrMethod = "method"
	// AttrKeyLength represents the telemetry attribute key for measuring the length
	// of a cache key in bytes. This metric helps monitor key size distribution
	// and identify potential performance impacts from oversized keys.
	AttrKeyLength = "key.len"
	// AttrKeysCount represents the telemetry attribute key for measuring the number
	// of cache keys being processed in a single call.
	AttrKeysCount = "keys.count"
	// AttrHit reports whether a lookup found a live entry.
	AttrHit = "hit"
	// AttrError reports whether the call returned an error.
	AttrError = "error"
)
