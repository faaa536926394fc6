package classifier

import "errors"

// ErrClassification is matched by every ClassificationError.
var ErrClassification = errors.New("classification failed")

// ClassificationError reports that an image could not be classified, either
// because it is not a decodable image or because the model is unavailable.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err == nil {
		return "could not process image: " + e.Reason
	}
	return "could not process image: " + e.Reason + ": " + e.Err.Error()
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

func (e *ClassificationError) Is(target error) bool {
	return target == ErrClassification
}
