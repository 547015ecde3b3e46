package creds

import "fmt"

// AuthError reports a fatal credential problem: missing or invalid
// credentials, a failed consent flow, or an unrefreshable token.
type AuthError struct {
	Msg string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func authErr(msg string, err error) error {
	return &AuthError{Msg: msg, Err: err}
}
