package store

import "errors"

var (
	// ErrDocumentExists is returned by Save when a new document is created under a
	// reference that is already taken. Callers re-read and continue with the stored document.
	ErrDocumentExists = errors.New("document already exists")

	// ErrDocumentNotFound is returned when an existing document was expected.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEmptyReference is returned for references without a wiki, space or name.
	ErrEmptyReference = errors.New("document reference is incomplete")
)
