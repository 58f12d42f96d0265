package lifecycle

import "errors"

var (
	// ErrServiceClosed is returned by operations invoked after Close.
	ErrServiceClosed = errors.New("lifecycle: service closed")

	// ErrAlreadyRegistered is returned when RegisterService is called twice.
	ErrAlreadyRegistered = errors.New("lifecycle: service already registered")

	// ErrNilSession is returned when an operation is given no session.
	ErrNilSession = errors.New("lifecycle: nil device session")

	// errNoResult is reported when a session closes its result channel
	// without delivering a value.
	errNoResult = errors.New("lifecycle: role request finished without a result")
)
