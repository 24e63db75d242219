package alarms

import "errors"

// ErrNotFound indicates a missing alarm record.
var ErrNotFound = errors.New("alarm: not found")

// ErrInvalidTransition indicates a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("alarm: invalid status transition")
