package domain

import "errors"

var (
	// ErrMalformedRequest marks a missing or unusable request body. No stream is started.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrSessionLookup marks a session store failure before the stream opened.
	ErrSessionLookup = errors.New("session lookup failed")
	// ErrPersistence marks a session save failure after all content was delivered.
	ErrPersistence = errors.New("session persistence failed")
)
