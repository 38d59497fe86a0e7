package validate

import "errors"

// ErrValidation marks a value outside its declared numeric range.
var ErrValidation = errors.New("validation failed")
