package attachment

import "errors"

var (
	// ErrNotFound is returned when a stored object does not exist.
	ErrNotFound = errors.New("attachment not found")
	// ErrNoFile is returned for an upload without a file name.
	ErrNoFile = errors.New("no file selected")
	// ErrTypeNotAllowed is returned for extensions outside the allow-list.
	ErrTypeNotAllowed = errors.New("file type not allowed")
	// ErrTooLarge is returned when the upload exceeds the size cap.
	ErrTooLarge = errors.New("file too large")
	// ErrExists is returned by Put when the name is taken.
	ErrExists = errors.New("attachment already exists")
	// ErrInvalidName is returned when an object name is not a plain file name.
	ErrInvalidName = errors.New("invalid object name")
)
