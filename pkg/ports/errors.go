package ports

import "errors"

// ErrInvalidFilter is returned when a filter expression cannot be parsed.
var ErrInvalidFilter = errors.New("invalid filter")

// ErrAlreadyUnregistered is returned when a registration is unregistered twice.
var ErrAlreadyUnregistered = errors.New("already unregistered")

// ErrNoSuchService is returned when a service reference is no longer backed
// by a live registration.
var ErrNoSuchService = errors.New("no such service")
