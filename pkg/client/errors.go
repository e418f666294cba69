package client

import "fmt"

type ErrorKind string

const (
	LoadFailed    ErrorKind = "LOAD_FAILED"
	RateLimited   ErrorKind = "RATE_LIMITED"
	NotAuthorized ErrorKind = "NOT_AUTHORIZED"
	RequestFailed ErrorKind = "REQUEST_FAILED"
)

// Error is the typed outcome of every failing operation. Callers switch
// on Kind to decide messaging; Detail carries the server or transport
// context.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// KindOf extracts the error kind, returning RequestFailed for any error
// that did not originate from this package.
func KindOf(err error) ErrorKind {
	if clientErr, ok := err.(*Error); ok {
		return clientErr.Kind
	}
	return RequestFailed
}
