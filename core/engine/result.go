package engine

import "time"

// Grade classifies how a collaborator read went.
type Grade int

const (
	// Ok means a fresh value was returned.
	Ok Grade = iota
	// Degraded means the read failed and a recent cached value was
	// substituted.
	Degraded
	// Failed means the read failed with no usable cache; the value is the
	// zero value.
	Failed
)

func (g Grade) String() string {
	switch g {
	case Ok:
		return "ok"
	case Degraded:
		return "degraded"
	default:
		return "failed"
	}
}

// Result carries a collaborator value together with the grade of its read.
type Result[T any] struct {
	Value T
	Grade Grade
	Err   error
	At    time.Time // when the value was observed; the cache time when Degraded
}

// Usable reports whether the value carries any information.
func (r Result[T]) Usable() bool {
	return r.Grade != Failed
}

// Cache holds the last good value of one collaborator read. A read that
// fails within the TTL of the last success degrades to the cached value
// instead of dropping to zero.
type Cache[T any] struct {
	ttl time.Duration
	val T
	at  time.Time
	set bool
}

// NewCache creates a cache with the given TTL.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl}
}

// Fetch runs fn and grades the outcome.
func (c *Cache[T]) Fetch(now time.Time, fn func() (T, error)) Result[T] {
	v, err := fn()
	if err == nil {
		c.val, c.at, c.set = v, now, true
		return Result[T]{Value: v, Grade: Ok, At: now}
	}
	if c.set && now.Sub(c.at) <= c.ttl {
		return Result[T]{Value: c.val, Grade: Degraded, Err: err, At: c.at}
	}
	var zero T
	return Result[T]{Value: zero, Grade: Failed, Err: err, At: now}
}
