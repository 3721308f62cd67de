package opencast

import (
	"errors"
	"fmt"
)

// The request error taxonomy. Every failed request to Opencast is exactly
// one of these; anything else is not the client's business and is passed
// through as is.
var (
	ErrNetwork            = errors.New("opencast: network error")
	ErrUnauthorized       = errors.New("opencast: unauthorized")
	ErrUnexpectedRedirect = errors.New("opencast: unexpected redirect")
	ErrNotOK              = errors.New("opencast: response is not OK")
	ErrInvalidJSON        = errors.New("opencast: invalid JSON")
)

// RequestError wraps one of the sentinel errors above with the context of
// the failed request.
type RequestError struct {
	Sentinel  error
	Operation string
	URL       string
	Status    int
	Err       error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s (%s): %v", e.Operation, e.URL, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// ConnectionStateForError returns the connection state a request failure
// leads to. ok is false if err is not part of the taxonomy.
func ConnectionStateForError(err error) (_ ConnectionState, ok bool) {
	switch {
	case errors.Is(err, ErrNetwork):
		return ConnectionStateNetworkError, true
	case errors.Is(err, ErrUnauthorized):
		return ConnectionStateIncorrectLogin, true
	case errors.Is(err, ErrUnexpectedRedirect):
		return ConnectionStateIncorrectLogin, true
	case errors.Is(err, ErrNotOK):
		return ConnectionStateResponseNotOK, true
	case errors.Is(err, ErrInvalidJSON):
		return ConnectionStateInvalidResponse, true
	}
	return ConnectionStateUndefined, false
}
