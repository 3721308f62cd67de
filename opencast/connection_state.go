package opencast

import (
	"fmt"
)

type ConnectionState int

const (
	ConnectionStateUndefined = ConnectionState(iota)
	ConnectionStateUnconfigured
	ConnectionStateConnected
	ConnectionStateNetworkError
	ConnectionStateResponseNotOK
	ConnectionStateInvalidResponse
	ConnectionStateIncorrectLogin
	ConnectionStateLoggedIn
	EndOfConnectionState
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateUndefined:
		return "<undefined>"
	case ConnectionStateUnconfigured:
		return "unconfigured"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateNetworkError:
		return "network_error"
	case ConnectionStateResponseNotOK:
		return "response_not_ok"
	case ConnectionStateInvalidResponse:
		return "invalid_response"
	case ConnectionStateIncorrectLogin:
		return "incorrect_login"
	case ConnectionStateLoggedIn:
		return "logged_in"
	}
	return fmt.Sprintf("<unknown_%d>", int(s))
}

// Outcome is the result of an upload, as reported to the user.
type Outcome string

const (
	OutcomeSuccess            = Outcome("success")
	OutcomeNetworkError       = Outcome("network_error")
	OutcomeNotAuthorized      = Outcome("not_authorized")
	OutcomeUnexpectedResponse = Outcome("unexpected_response")
	OutcomeUnknownError       = Outcome("unknown_error")
)

func (o Outcome) String() string {
	return string(o)
}
