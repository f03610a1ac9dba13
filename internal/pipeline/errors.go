package pipeline

import "errors"

// FetchError marks a failed feed fetch. It is the only error class that
// aborts a run; everything downstream of the fetch is recovered per item.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "feed fetch: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// Fatal reports whether err should stop the run (and exit non-zero in
// one-shot mode). Per-item delivery and render failures never are.
func Fatal(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
