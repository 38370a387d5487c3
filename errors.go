package lexcache

import "github.com/hyp3rd/lexcache/internal/sentinel"

// Errors returned by the lexcache packages, for matching with errors.Is.
var (
	ErrNilFactory              = sentinel.ErrNilFactory
	ErrNilComparer             = sentinel.ErrNilComparer
	ErrInvalidKey              = sentinel.ErrInvalidKey
	ErrKeyNotFound             = sentinel.ErrKeyNotFound
	ErrParamCannotBeEmpty      = sentinel.ErrParamCannotBeEmpty
	ErrSerializerNotFound      = sentinel.ErrSerializerNotFound
	ErrNilClient               = sentinel.ErrNilClient
	ErrCollectionNotDefined    = sentinel.ErrCollectionNotDefined
	ErrCollectionTypeMismatch  = sentinel.ErrCollectionTypeMismatch
	ErrTimeoutOrCanceled       = sentinel.ErrTimeoutOrCanceled
	ErrMgmtHTTPShutdownTimeout = sentinel.ErrMgmtHTTPShutdownTimeout
	ErrInvalidConfig           = sentinel.ErrInvalidConfig
)
