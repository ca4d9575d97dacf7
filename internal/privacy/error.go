package privacy

// scrubbedError reports a scrubbed message but keeps the original error in
// the chain for errors.Is and errors.As.
type scrubbedError struct {
	err error
	msg string
}

func (e *scrubbedError) Error() string { return e.msg }

func (e *scrubbedError) Unwrap() error { return e.err }

// WrapError scrubs the message of err with ScrubMessage. It returns nil for
// a nil err.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &scrubbedError{err: err, msg: ScrubMessage(err.Error())}
}
