package similarity

import "errors"

// Sentinel errors for strict weight handling. The scorer itself never fails.
var (
	ErrUnknownLabel  = errors.New("unknown weight label")
	ErrInvalidWeight = errors.New("invalid weight coefficient")
	ErrZeroWeights   = errors.New("weights do not sum to a positive value")
)
