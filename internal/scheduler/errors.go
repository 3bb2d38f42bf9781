package scheduler

import "errors"

var errPanic = errors.New("task panicked")
