package dispatch

import "fmt"

// SessionCreationError wraps a remote failure while minting a session. The
// underlying service error stays reachable for status pass-through.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("session creation failed: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// UnexpectedError wraps a failure that did not originate as a structured
// remote service error, e.g. transport or parsing problems.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected %s failure: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }
