package store

import "errors"

var (
	// ErrConfiguration is returned when the configuration offers no usable credential path.
	ErrConfiguration = errors.New("docbind: invalid configuration")

	// ErrCredential is returned when a key could not be fetched for a resource id.
	ErrCredential = errors.New("docbind: credential acquisition failed")

	// ErrResolution is returned when a record type has no declared container
	// or the container handle could not be opened.
	ErrResolution = errors.New("docbind: unable to determine container")

	// ErrUnsupportedQuery is returned by drivers that cannot execute a query text.
	ErrUnsupportedQuery = errors.New("docbind: query not supported by driver")
)
