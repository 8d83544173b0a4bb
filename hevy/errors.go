package hevy

import (
	"fmt"
	"net"
)

// Kind discriminates the failure classes a client operation can produce.
type Kind int

const (
	// The upstream rejected the login credentials.
	KindInvalidCredentials Kind = iota

	// No token was available, or the upstream rejected the one we sent.
	KindUnauthorized

	// The upstream answered with a body we could not decode.
	KindBadResponse

	// We could not reach the upstream at all.
	KindConnection

	// The request exceeded the transport timeout.
	KindTimeout

	// The upstream answered with an unexpected status.
	KindUpstream

	// Anything that went wrong before a request hit the wire.
	KindInternal
)

// Error is the single error type returned by all Client operations. The Kind
// tells callers how to map the failure; the message carries the cause.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Translate a failure from the HTTP transport into a timeout or connection
// error. `http.Client.Do` always returns a `*url.Error`, which implements
// `net.Error`.
func transportError(op string, err error) *Error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return newError(KindTimeout, "%s: request timed out: %s", op, err.Error())
	}

	return newError(KindConnection, "%s: connection failed: %s", op, err.Error())
}
