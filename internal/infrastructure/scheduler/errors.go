package scheduler

import "errors"

// ErrInvalidConfig is returned when the scheduler configuration cannot run
var ErrInvalidConfig = errors.New("invalid scheduler configuration")
