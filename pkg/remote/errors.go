package remote

import "errors"

var (
	// ErrRemoteTimeout reports that a remote operation exceeded its
	// deadline or the transport timed out.
	ErrRemoteTimeout = errors.New("remote operation timed out")

	// ErrRefConflict reports that the server rejected a reference update
	// because its current value differed from the expected one.
	ErrRefConflict = errors.New("remote ref conflict")

	// ErrObjectNotFound reports that the server has no object with the
	// requested hash.
	ErrObjectNotFound = errors.New("remote object not found")
)
