package classify

import "errors"

// Sentinel kinds for classification errors.
var (
	// ErrMissingRestingRate marks a precondition failure: zone
	// computation needs an input the profile does not carry.
	ErrMissingRestingRate = errors.New("missing input")

	// ErrUnknownBiomarker marks a lookup for a biomarker the reference
	// catalog does not define.
	ErrUnknownBiomarker = errors.New("unknown biomarker")
)
