// Package result provides a two-variant fallible value used across the probe
// pipeline for recoverable external failures (network, TLS, parsing).
//
// A Result holds either a value or an error, never both. Map and Bind chain
// steps so that the first failure short-circuits everything after it.
package result

import "fmt"

// Result is either a success carrying a value or a failure carrying an error.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a failure. A nil error is replaced with a generic one so that
// the result is still a failure.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("unspecified failure")
	}
	return Result[T]{err: err}
}

// Errorf builds a failure from a format string, like fmt.Errorf.
func Errorf[T any](format string, args ...any) Result[T] {
	return Err[T](fmt.Errorf(format, args...))
}

// From converts a conventional (value, error) pair into a Result.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsOk reports whether the result is a success.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the success value, or the zero value on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Error returns the failure, or nil on success.
func (r Result[T]) Error() error {
	return r.err
}

// Get unpacks the result into the conventional (value, error) pair.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// Map applies f to the value of a successful result. Failures pass through.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Ok(f(r.value))
}

// Bind applies a fallible step to the value of a successful result.
// Failures pass through without calling f.
func Bind[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return f(r.value)
}
