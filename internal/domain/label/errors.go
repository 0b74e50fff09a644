package label

import "errors"

var (
	// ErrUnrecognized marks a candidate that is not a label of the scheme.
	ErrUnrecognized = errors.New("unrecognized label")
	// ErrInvalidParams marks scheme parameters that failed decoding or validation.
	ErrInvalidParams = errors.New("invalid labeling scheme parameters")
	// ErrUnknownScheme marks a scheme name with no registered factory.
	ErrUnknownScheme = errors.New("unknown labeling scheme")
)
