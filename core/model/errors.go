package model

import "errors"

// ErrInvalidInput is returned when a tick or command payload is malformed.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidDevice is returned when a device identifier does not exist.
var ErrInvalidDevice = errors.New("invalid device")

// ErrOutOfRange is returned when a tap position or load setpoint is outside
// its operating limits.
var ErrOutOfRange = errors.New("out of range")
