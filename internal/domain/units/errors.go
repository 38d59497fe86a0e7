package units

import "errors"

// ErrUnsupportedUnit marks an input unit with no canonical mapping.
var ErrUnsupportedUnit = errors.New("unsupported unit")
