// Package sentinel provides standardized error definitions for the lexcache system.
// This package centralizes the error values used across the lexcache components,
// so callers can match them with errors.Is regardless of the wrapping context.
//
// The errors defined here cover:
// - Invalid configuration parameters (factories, comparers, empty names)
// - Cache and registry lookup failures (missing keys, undefined collections)
// - Runtime operation errors (timeouts, cancellations, server shutdown)
//
// All errors are created using the ewrap package to provide enhanced error
// wrapping and context capabilities.
package sentinel

import (
	"github.com/hyp3rd/ewrap"
)

var (
	// ErrNilFactory is returned when a value must be produced but neither a per-call
	// nor a default factory is available.
	ErrNilFactory = ewrap.New("factory cannot be nil")

	// ErrNilComparer is returned when an explicit key normalizer is nil.
	ErrNilComparer = ewrap.New("key comparer cannot be nil")

	// ErrInvalidKey is returned when an invalid key is used to access an item in the cache.
	// An invalid key is a key that is either empty or consists only of whitespace characters.
	ErrInvalidKey = ewrap.New("invalid key")

	// ErrKeyNotFound is returned when a key is not found in the cache or in a remote store.
	ErrKeyNotFound = ewrap.New("key not found")

	// ErrParamCannotBeEmpty is returned when a parameter cannot be empty.
	ErrParamCannotBeEmpty = ewrap.New("param cannot be empty")

	// ErrSerializerNotFound is returned when a serializer is not found.
	ErrSerializerNotFound = ewrap.New("serializer not found")

	// ErrNilClient is returned when a nil client is passed to a loader.
	ErrNilClient = ewrap.New("nil client")

	// ErrCollectionNotDefined is returned when a named collection is resolved before being defined.
	ErrCollectionNotDefined = ewrap.New("collection not defined")

	// ErrCollectionTypeMismatch is returned when a collection is resolved with key or value
	// types different from the ones it was defined with.
	ErrCollectionTypeMismatch = ewrap.New("collection type mismatch")

	// ErrTimeoutOrCanceled is returned when a timeout or cancellation occurs.
	ErrTimeoutOrCanceled = ewrap.New("the operation timed out or was canceled")

	// ErrMgmtHTTPShutdownTimeout is returned when the management HTTP server fails to shutdown before context deadline.
	ErrMgmtHTTPShutdownTimeout = ewrap.New("management http shutdown timeout")

	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = ewrap.New("invalid configuration")
)
