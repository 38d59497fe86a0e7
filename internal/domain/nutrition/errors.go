package nutrition

import "errors"

// ErrInconsistentReference marks a dangling food-item reference found
// during aggregation. It is a data-integrity fault, not transient.
var ErrInconsistentReference = errors.New("inconsistent reference")
