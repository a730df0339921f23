package faults

// Typed faults for the pipeline. No component recovers locally; every fault
// bubbles up to the CLI, which aborts the run.

// TransientError is a network or transport failure. Nothing here retries.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// ParseError means an expected HTML or JSON structure was absent or malformed.
type ParseError struct {
	Op  string
	Msg string
}

func (e *ParseError) Error() string { return e.Op + ": " + e.Msg }

// AuthError means a login or token exchange was rejected.
type AuthError struct {
	Op  string
	Msg string
	Err error
}

func (e *AuthError) Error() string {
	s := e.Op
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *AuthError) Unwrap() error { return e.Err }

// PublishError means the activity endpoint rejected an upload.
type PublishError struct {
	Op  string
	Msg string
}

func (e *PublishError) Error() string { return e.Op + ": " + e.Msg }

// DataIntegrityError means a trip references a station name the station
// directory doesn't know.
type DataIntegrityError struct {
	Msg string
}

func (e *DataIntegrityError) Error() string { return e.Msg }
