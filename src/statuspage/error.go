package statuspage

// Error wraps another error to include the HTTP status code that should be
// sent to the client as a result of this error.
type Error struct {
	Inner      error
	StatusCode int
	Message    string
}

func (err Error) Error() string {
	return err.Inner.Error()
}

// Unwrap returns the wrapped error.
func (err Error) Unwrap() error {
	return err.Inner
}
