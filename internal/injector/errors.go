package injector

import "errors"

var (
	ErrEmptyElementID   = errors.New("element id is required")
	ErrInvalidSourceURL = errors.New("invalid source url")
	ErrFetch            = errors.New("fetch source")
	ErrConvert          = errors.New("convert markdown")
	ErrSetContent       = errors.New("set content")

	// ErrSuperseded is returned when an injection that started later has
	// already written the same element.
	ErrSuperseded = errors.New("superseded by a newer injection")
)
