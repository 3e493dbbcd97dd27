package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks problems with what the user asked for: a missing links
	// file, an invalid page URL or an empty job list.
	ErrInput = errors.New("invalid input")

	// ErrNoJobs is returned when job resolution yields no JavaScript links.
	ErrNoJobs = fmt.Errorf("%w: no javascript links to process", ErrInput)

	// ErrUserAbort is returned when the user declines to overwrite the output
	// directory or interrupts the run.
	ErrUserAbort = errors.New("aborted by user")

	// ErrReferenceMissing means a script declares no sourcemap.
	ErrReferenceMissing = errors.New("sourcemap reference missing")

	// ErrDecodeFailed means an inline sourcemap payload could not be decoded.
	ErrDecodeFailed = errors.New("inline sourcemap decode failed")

	// ErrMalformedSourcemap means the sourcemap document is not usable JSON.
	ErrMalformedSourcemap = errors.New("malformed sourcemap")
)

// FetchFailedError reports a failed HTTP fetch. Status is zero when the
// request never produced a response.
type FetchFailedError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchFailedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}

	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}

	return fmt.Sprintf("fetch %s failed", e.URL)
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}
