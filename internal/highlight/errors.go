package highlight

import "fmt"

// DocumentOpenError reports a source document that could not be opened or
// parsed. No partial result accompanies it.
type DocumentOpenError struct {
	Path string
	Err  error
}

func (e *DocumentOpenError) Error() string {
	return fmt.Sprintf("open document %s: %v", e.Path, e.Err)
}

func (e *DocumentOpenError) Unwrap() error {
	return e.Err
}
