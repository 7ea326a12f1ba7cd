package matching

import "errors"

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidPosting = errors.New("invalid posting")
	ErrInvalidWeights = errors.New("invalid scoring weights")
)
