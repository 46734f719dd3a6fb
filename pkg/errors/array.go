package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FaultKind is the structured classification of an array-reported fault.
// It is computed exactly once, at the transport boundary; everything above
// the session client branches on the kind, never on message text.
type FaultKind string

const (
	FaultNone             FaultKind = ""
	FaultAuthExpired      FaultKind = "auth_expired"
	FaultVersionRejected  FaultKind = "version_rejected"
	FaultAlreadyExists    FaultKind = "already_exists"
	FaultAlreadyConnected FaultKind = "already_connected"
	FaultNotConnected     FaultKind = "not_connected"
	FaultNotFound         FaultKind = "not_found"
	FaultOther            FaultKind = "other"
)

// ArrayError is a non-success response from the array management API.
type ArrayError struct {
	Status  int       // HTTP status of the response
	Code    int       // array error code from the body, if any
	Message string    // array error message
	Kind    FaultKind // classification, assigned by the session client
}

func (e *ArrayError) Error() string {
	return fmt.Sprintf("array error (status %d, code %d): %s", e.Status, e.Code, e.Message)
}

// ClassifyFault maps a raw array response to a FaultKind. This is the only
// place in the module that inspects array message text.
func ClassifyFault(status int, message string) FaultKind {
	switch status {
	case 401:
		return FaultAuthExpired
	case 450:
		return FaultVersionRejected
	case 400:
		switch {
		case strings.Contains(message, "Connection already exists"):
			return FaultAlreadyConnected
		case strings.Contains(message, "already exists"):
			return FaultAlreadyExists
		case strings.Contains(message, "is not connected"):
			return FaultNotConnected
		case strings.Contains(message, "does not exist"):
			return FaultNotFound
		}
	}
	return FaultOther
}

// AsArrayError unwraps err to an *ArrayError if one is in the chain.
func AsArrayError(err error) (*ArrayError, bool) {
	var ae *ArrayError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsFault reports whether err carries an array fault of the given kind.
func IsFault(err error, kind FaultKind) bool {
	if ae, ok := AsArrayError(err); ok {
		return ae.Kind == kind
	}
	return false
}
