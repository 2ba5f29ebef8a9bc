package notify

import "errors"

var (
	// ErrUnknownEncoding is returned for a payload encoding other than
	// json or msgpack.
	ErrUnknownEncoding = errors.New("notify: unknown encoding")

	// ErrSinkFailed wraps a sink delivery failure.
	ErrSinkFailed = errors.New("notify: sink delivery failed")
)
