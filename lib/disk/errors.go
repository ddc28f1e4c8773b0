package disk

import "fmt"

// SizeParseError reports an image size specification that is not a size.
type SizeParseError struct {
	Spec string
	Err  error
}

func (e *SizeParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid size %q", e.Spec)
	}
	return fmt.Sprintf("invalid size %q: %v", e.Spec, e.Err)
}

func (e *SizeParseError) Unwrap() error {
	return e.Err
}
