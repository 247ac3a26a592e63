package grouping

import "errors"

// ErrThresholdOutOfRange is returned in strict mode for thresholds outside [0, 1].
var ErrThresholdOutOfRange = errors.New("threshold out of range [0, 1]")
