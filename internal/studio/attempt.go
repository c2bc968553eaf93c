package studio

// Attempt is the result of calling the remote gateway: either Ok with a value or Err
// with the reason the call did not succeed. The fallback path is chosen by inspecting
// an Attempt rather than by catching failures.
type Attempt[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Attempt[T] {
	return Attempt[T]{value: v}
}

// Err wraps a failure reason.
func Err[T any](err error) Attempt[T] {
	return Attempt[T]{err: err}
}

// IsOk reports whether the attempt succeeded.
func (a Attempt[T]) IsOk() bool {
	return a.err == nil
}

// Value returns the successful value and whether there was one.
func (a Attempt[T]) Value() (T, bool) {
	return a.value, a.err == nil
}

// Reason returns the failure reason, or nil on success.
func (a Attempt[T]) Reason() error {
	return a.err
}

// attempt runs fn and converts its (value, error) pair into an Attempt.
// A nil pointer result with no error counts as a failure.
func attempt[T any](fn func() (*T, error)) Attempt[*T] {
	v, err := fn()
	if err != nil {
		return Err[*T](err)
	}
	if v == nil {
		return Err[*T](errEmptyResponse)
	}
	return Ok(v)
}
