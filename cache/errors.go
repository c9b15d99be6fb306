package cache

import "errors"

// Sentinel errors returned by the cache. Match them with errors.Is;
// constructors and write paths may wrap them with extra context.
var (
	// ErrInvalidCapacity is returned by New when Options.Capacity is negative.
	ErrInvalidCapacity = errors.New("cache: negative capacity")

	// ErrInvalidInterval is returned by New when Options.SweepInterval is negative.
	ErrInvalidInterval = errors.New("cache: negative sweep interval")

	// ErrNegativeTTL is returned by SetWithTTL when ttl < 0.
	// The cache is left untouched.
	ErrNegativeTTL = errors.New("cache: negative ttl")

	// ErrNilValue is returned by Add/Set/SetWithTTL when the value is nil:
	// an untyped nil interface or a nil pointer/map/slice/func/chan.
	// Absence is reported through Get's boolean, so nil is never storable.
	ErrNilValue = errors.New("cache: nil value")

	// ErrNoLoader is returned by GetOrLoad when no Loader was configured.
	ErrNoLoader = errors.New("cache: no Loader provided")

	// ErrClosed is returned by write operations after Close.
	ErrClosed = errors.New("cache: closed")
)
